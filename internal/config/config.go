package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the fulfillment system
type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Workers  WorkersConfig
	Services ServicesConfig
	Catalog  map[string]string
}

// DatabaseConfig holds database connection and pool configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	MaxConns       int
	MinConns       int
	ConnectRetries int
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// WorkersConfig holds consumer pool sizes per capability
type WorkersConfig struct {
	PaymentWorkers     int
	PaymentWorkersMax  int
	ShippingWorkers    int
	ShippingWorkersMax int
}

// ServicesConfig holds downstream capability endpoints and tunables
type ServicesConfig struct {
	CatalogURL          string
	OrdersURL           string
	PaymentsURL         string
	ShippingURL         string
	TimeoutSeconds      int
	Carrier             string
	PaymentSuccessRatio float64
}

// Load reads configuration from a YAML file
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := &Config{
		Database: DatabaseConfig{
			MaxConns:       25,
			MinConns:       5,
			ConnectRetries: 5,
		},
		Workers: WorkersConfig{
			PaymentWorkers:     3,
			PaymentWorkersMax:  10,
			ShippingWorkers:    2,
			ShippingWorkersMax: 5,
		},
		Services: ServicesConfig{
			TimeoutSeconds:      3,
			PaymentSuccessRatio: 0.9,
		},
		Catalog: make(map[string]string),
	}
	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		// Parse key-value pairs
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if err := config.setValue(currentSection, key, value); err != nil {
				return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return config, nil
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "workers":
		return c.setWorkersValue(key, value)
	case "services":
		return c.setServicesValue(key, value)
	case "catalog":
		c.Catalog[key] = value
		return nil
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

// setDatabaseValue sets database configuration values
func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Database.Port = port
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	case "max_conns":
		return setPositiveInt(&c.Database.MaxConns, key, value)
	case "min_conns":
		return setPositiveInt(&c.Database.MinConns, key, value)
	case "connect_retries":
		return setPositiveInt(&c.Database.ConnectRetries, key, value)
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

// setPositiveInt parses a positive integer config value into dst.
func setPositiveInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	if n < 1 {
		return fmt.Errorf("%s must be positive", key)
	}
	*dst = n
	return nil
}

// setRabbitMQValue sets RabbitMQ configuration values
func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.RabbitMQ.Port = port
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

// setWorkersValue sets consumer pool configuration values
func (c *Config) setWorkersValue(key, value string) error {
	count, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid worker count: %w", err)
	}
	if count < 1 {
		return fmt.Errorf("worker count must be positive")
	}

	switch key {
	case "payment_workers":
		c.Workers.PaymentWorkers = count
	case "payment_workers_max":
		c.Workers.PaymentWorkersMax = count
	case "shipping_workers":
		c.Workers.ShippingWorkers = count
	case "shipping_workers_max":
		c.Workers.ShippingWorkersMax = count
	default:
		return fmt.Errorf("unknown workers key: %s", key)
	}
	return nil
}

// setServicesValue sets downstream service configuration values
func (c *Config) setServicesValue(key, value string) error {
	switch key {
	case "catalog_url":
		c.Services.CatalogURL = value
	case "orders_url":
		c.Services.OrdersURL = value
	case "payments_url":
		c.Services.PaymentsURL = value
	case "shipping_url":
		c.Services.ShippingURL = value
	case "timeout_seconds":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		c.Services.TimeoutSeconds = seconds
	case "carrier":
		c.Services.Carrier = value
	case "payment_success_ratio":
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid success ratio: %w", err)
		}
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("success ratio must be between 0 and 1")
		}
		c.Services.PaymentSuccessRatio = ratio
	default:
		return fmt.Errorf("unknown services key: %s", key)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
