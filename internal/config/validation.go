package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/zmanimbot/internal/zmanim"
)

// Validate checks the struct tags of the whole configuration.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ZmanimLocation converts the location section, loading its timezone.
func (c *Config) ZmanimLocation() (zmanim.Location, error) {
	return zmanim.NewLocation(c.Location.Name, c.Location.Latitude, c.Location.Longitude, c.Location.Timezone)
}
