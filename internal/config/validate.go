package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAMQP(); err != nil {
		return err
	}
	if err := c.validateNeo4j(); err != nil {
		return err
	}
	if err := c.validateMinIO(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAMQP() error {
	if c.AMQP.URL == "" {
		return errors.New("amqp.url must be set")
	}
	if !strings.HasPrefix(c.AMQP.URL, "amqp://") && !strings.HasPrefix(c.AMQP.URL, "amqps://") {
		return fmt.Errorf("amqp.url must use the amqp:// or amqps:// scheme, got %q", c.AMQP.URL)
	}
	if c.AMQP.Exchange == "" {
		return errors.New("amqp.exchange must be set")
	}
	return nil
}

func (c *Config) validateNeo4j() error {
	if c.Neo4j.URI == "" {
		return errors.New("neo4j.uri must be set")
	}
	return nil
}

func (c *Config) validateMinIO() error {
	if c.MinIO.Endpoint == "" {
		return errors.New("minio.endpoint must be set")
	}
	if c.MinIO.Bucket == "" {
		return errors.New("minio.bucket must be set")
	}
	if c.MinIO.PublicURL != "" {
		parsed, err := url.Parse(c.MinIO.PublicURL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("minio.public_url must be a valid URL, got %q", c.MinIO.PublicURL)
		}
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Host == "" {
		return errors.New("smtp.host must be set")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	if c.SMTP.From == "" {
		return errors.New("smtp.from must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.DownloadTimeout <= 0 {
		return errors.New("fetch.download_timeout must be positive")
	}
	if c.Fetch.MaxImageBytes <= 0 {
		return errors.New("fetch.max_image_bytes must be positive")
	}
	if c.Fetch.MaxDimension <= 0 {
		return errors.New("fetch.max_dimension must be positive")
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.ProbeTimeout <= 0 {
		return errors.New("validation.probe_timeout must be positive")
	}
	if c.Validation.MaxRedirects < 0 {
		return errors.New("validation.max_redirects must not be negative")
	}
	return nil
}
