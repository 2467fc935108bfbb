package metadata

import (
	"errors"
	"reflect"
)

var (
	// ErrTypeMismatch occurs when a metadata value cannot be converted to the constraint value type
	ErrTypeMismatch = errors.New("bankengine: the values to compare are of a different type")
	// ErrUnsupportedOperator occurs when a constraint operator is not supported for a type
	ErrUnsupportedOperator = errors.New("bankengine: the operator is not supported for this type")
	// ErrUnsupportedType occurs when a constraint value is not a scalar
	ErrUnsupportedType = errors.New("bankengine: the value is not a supported scalar")
)

// Matches returns true if every constraint of the matcher is satisfied by the metadata
func Matches(matcher Matcher, metadata Metadata) (bool, error) {
	if matcher == nil {
		return true, nil
	}

	var constraints []Constraint
	matcher.Iterate(func(c Constraint) {
		constraints = append(constraints, c)
	})

	for _, c := range constraints {
		valid, err := matchConstraint(c, metadata.Value(c.Field()))
		if err != nil || !valid {
			return false, err
		}
	}

	return true, nil
}

func matchConstraint(c Constraint, val interface{}) (bool, error) {
	cVal, err := asScalar(c.Value())
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}

	val, err = asScalar(val)
	if err != nil {
		return false, err
	}

	cValType := reflect.TypeOf(cVal)
	if valType := reflect.TypeOf(val); valType != cValType {
		if !valType.ConvertibleTo(cValType) || valType.Kind() == reflect.String || cValType.Kind() == reflect.String {
			return false, ErrTypeMismatch
		}

		val = reflect.ValueOf(val).Convert(cValType).Interface()
	}

	return compareValue(val, c.Operator(), cVal)
}

// asScalar reduces the value to string, bool, int64 or float64
func asScalar(value interface{}) (interface{}, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}

	return nil, ErrUnsupportedType
}

func compareValue(val interface{}, op Operator, cVal interface{}) (bool, error) {
	switch c := cVal.(type) {
	case string:
		v := val.(string)
		switch op {
		case Equals:
			return v == c, nil
		case NotEquals:
			return v != c, nil
		}
	case bool:
		v := val.(bool)
		switch op {
		case Equals:
			return v == c, nil
		case NotEquals:
			return v != c, nil
		}
	case int64:
		return compareOrdered(val.(int64) > c, val.(int64) == c, op)
	case float64:
		return compareOrdered(val.(float64) > c, val.(float64) == c, op)
	}

	return false, ErrUnsupportedOperator
}

func compareOrdered(greater, equal bool, op Operator) (bool, error) {
	switch op {
	case Equals:
		return equal, nil
	case NotEquals:
		return !equal, nil
	case GreaterThan:
		return greater, nil
	case GreaterThanEquals:
		return greater || equal, nil
	case LowerThan:
		return !greater && !equal, nil
	case LowerThanEquals:
		return !greater, nil
	}

	return false, ErrUnsupportedOperator
}
