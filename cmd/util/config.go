package util

import (
	"fmt"
	"strings"
	"time"
)

// StoreConfig holds the connection and lock settings shared by all commands
type StoreConfig struct {
	// Type of the store (redis or local)
	Type string

	// redis connection
	RedisAddrs    []string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	// lock settings
	Prefix string
	Mode   string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("Type", c.Type)
	if c.Type == "redis" {
		addField("Addresses", strings.Join(c.RedisAddrs, ", "))
		password := "(none)"
		if c.RedisPassword != "" {
			password = "********"
		}
		addField("Password", password)
		addField("Database", fmt.Sprintf("%d", c.RedisDB))
		addField("Timeout", c.RedisTimeout.String())
	}

	addSection("Locks")
	addField("Mode", c.Mode)
	prefix := c.Prefix
	if prefix == "" {
		prefix = "(none)"
	}
	addField("Key Prefix", prefix)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
