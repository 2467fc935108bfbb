package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/bank"
	"github.com/hellofresh/bankengine/money"
)

// Config is the process configuration, read from a .env file and the environment
type Config struct {
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	EventStream string `mapstructure:"EVENT_STREAM"`

	BankCode    string `mapstructure:"BANK_CODE"`
	BranchCode  string `mapstructure:"BRANCH_CODE"`
	Currency    string `mapstructure:"CURRENCY"`
	OrderFee    string `mapstructure:"ORDER_FEE"`
	SavingsRate string `mapstructure:"SAVINGS_RATE"`
	Retries     int    `mapstructure:"RETRIES"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AMQPDSN      string `mapstructure:"AMQP_DSN"`
	AMQPQueue    string `mapstructure:"AMQP_QUEUE"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// ProjectionListener selects what drives the order book projection: postgres, amqp or kafka
	ProjectionListener string `mapstructure:"PROJECTION_LISTENER"`

	ListenerMinReconnect time.Duration `mapstructure:"LISTENER_MIN_RECONNECT"`
	ListenerMaxReconnect time.Duration `mapstructure:"LISTENER_MAX_RECONNECT"`
}

// Projection listeners
const (
	ListenerPostgres = "postgres"
	ListenerAMQP     = "amqp"
	ListenerKafka    = "kafka"
)

var defaults = map[string]interface{}{
	"POSTGRES_DSN":           "",
	"EVENT_STREAM":           "bank",
	"BANK_CODE":              money.DefaultBankCode,
	"BRANCH_CODE":            money.DefaultBranchCode,
	"CURRENCY":               "EUR",
	"ORDER_FEE":              "1.00",
	"SAVINGS_RATE":           "0.02",
	"RETRIES":                bank.DefaultRetries,
	"HTTP_ADDR":              ":8080",
	"LOG_LEVEL":              "info",
	"AMQP_DSN":               "",
	"AMQP_QUEUE":             "bankengine.events",
	"KAFKA_BROKERS":          "",
	"KAFKA_TOPIC":            "bankengine.events",
	"KAFKA_GROUP_ID":         "bankengine-order-book",
	"PROJECTION_LISTENER":    ListenerPostgres,
	"LISTENER_MIN_RECONNECT": time.Millisecond,
	"LISTENER_MAX_RECONNECT": time.Second,
}

// Load reads the .env file in dir when present and overrides it with environment variables
func Load(dir string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, errors.Wrap(err, "bankengine: failed to read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "bankengine: failed to decode config")
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.EventStream) == "":
		return bankengine.InvalidArgumentError("EVENT_STREAM")
	case c.ProjectionListener != ListenerPostgres &&
		c.ProjectionListener != ListenerAMQP &&
		c.ProjectionListener != ListenerKafka:
		return bankengine.InvalidArgumentError("PROJECTION_LISTENER")
	case c.ListenerMinReconnect <= 0:
		return bankengine.InvalidArgumentError("LISTENER_MIN_RECONNECT")
	case c.ListenerMaxReconnect < c.ListenerMinReconnect:
		return bankengine.InvalidArgumentError("LISTENER_MAX_RECONNECT")
	}

	return nil
}

// StreamName returns the event stream all aggregates are stored in
func (c Config) StreamName() bankengine.StreamName {
	return bankengine.StreamName(c.EventStream)
}

// Brokers returns the kafka broker addresses, nil when kafka is not configured
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// Bank returns the business settings of the bank service
func (c Config) Bank() (bank.Config, error) {
	fee, err := money.Parse(c.OrderFee, c.Currency)
	if err != nil {
		return bank.Config{}, errors.Wrap(err, "bankengine: invalid ORDER_FEE")
	}

	rate, err := decimal.NewFromString(c.SavingsRate)
	if err != nil {
		return bank.Config{}, errors.Wrap(err, "bankengine: invalid SAVINGS_RATE")
	}
	if rate.IsNegative() {
		return bank.Config{}, bankengine.InvalidArgumentError("SAVINGS_RATE")
	}

	return bank.Config{
		Currency:    c.Currency,
		OrderFee:    fee,
		SavingsRate: rate,
		Retries:     c.Retries,
	}, nil
}
