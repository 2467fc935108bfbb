package metadata

// Operator compares a metadata field against a value
type Operator string

// Operators understood by the event stores
const (
	Equals            Operator = "="
	NotEquals         Operator = "!="
	GreaterThan       Operator = ">"
	GreaterThanEquals Operator = ">="
	LowerThan         Operator = "<"
	LowerThanEquals   Operator = "<="
)

// Constraint is a single condition on a metadata field
type Constraint struct {
	field    string
	operator Operator
	value    interface{}
}

// Field is the metadata key
func (c Constraint) Field() string { return c.field }

// Operator is the comparison to apply
func (c Constraint) Operator() Operator { return c.operator }

// Value is the scalar the field is compared against
func (c Constraint) Value() interface{} { return c.value }

// Matcher selects messages by their metadata.
// Stores translate it into a query, the in-memory store evaluates it directly.
type Matcher interface {
	// Iterate visits the constraints in the order they were added
	Iterate(callback func(constraint Constraint))
}

type constraints []Constraint

func (cs constraints) Iterate(callback func(constraint Constraint)) {
	for _, c := range cs {
		callback(c)
	}
}

// NewMatcher returns a Matcher that matches everything
func NewMatcher() Matcher {
	return constraints(nil)
}

// WithConstraint returns a Matcher holding the constraints of parent followed by the new one.
// parent is left untouched.
func WithConstraint(parent Matcher, field string, operator Operator, value interface{}) Matcher {
	var cs constraints
	if parent != nil {
		parent.Iterate(func(c Constraint) {
			cs = append(cs, c)
		})
	}

	return append(cs, Constraint{field: field, operator: operator, value: value})
}
