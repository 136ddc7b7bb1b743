// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

// In this file: tunable API limits and their validation.

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"golang.org/x/time/rate"
)

// Limits contains the tunables that bound the work this program is allowed
// to do against the Discord API.  MaxBatches is the hard cap on the number
// of history pages one scan may request: it is the sole safeguard against
// unbounded call volume when a highly selective filter is run against a
// deep, sparse history.
type Limits struct {
	// RequestsPerMinute is the REST request rate.
	RequestsPerMinute int `toml:"requests_per_minute" validate:"required,min=1,max=3000"`
	// Burst is the allowed burst of the limiter.
	Burst uint `toml:"burst" validate:"required,min=1,max=10"`
	// RetryAttempts is the number of attempts for a failing REST call.
	RetryAttempts int `toml:"retry_attempts" validate:"min=0,max=10"`
	// MaxBatches is the scan iteration budget, in batches.
	MaxBatches int `toml:"max_batches" validate:"required,min=1,max=100"`
	// BatchSize is the number of messages requested per batch (Discord
	// allows at most 100).
	BatchSize int `toml:"batch_size" validate:"required,min=1,max=100"`
}

// DefLimits are the default limits.
var DefLimits = Limits{
	RequestsPerMinute: 50,
	Burst:             1,
	RetryAttempts:     3,
	MaxBatches:        10,
	BatchSize:         100,
}

var (
	validate *validator.Validate
	// OptErrTranslations is the english translator for the validation
	// errors.
	OptErrTranslations ut.Translator
)

func init() {
	validate = validator.New()
	english := en.New()
	uni := ut.New(english, english)
	var ok bool
	OptErrTranslations, ok = uni.GetTranslator("en")
	if !ok {
		panic("internal error: failed to init translator")
	}
	if err := entranslations.RegisterDefaultTranslations(validate, OptErrTranslations); err != nil {
		panic(err)
	}
}

// Validate checks the limits struct for validity.
func (l *Limits) Validate() error {
	return validate.Struct(l)
}

// Apply applies the limits from other, if they are valid.
func (l *Limits) Apply(other Limits) error {
	if err := other.Validate(); err != nil {
		return err
	}
	*l = other
	return nil
}

// LoadLimits reads, parses and validates the limits from a TOML file.
// Fields that are absent from the file keep their default values.
func LoadLimits(filename string) (Limits, error) {
	limits := DefLimits
	if _, err := toml.DecodeFile(filename, &limits); err != nil {
		return DefLimits, fmt.Errorf("limits file %q: %w", filename, err)
	}
	if err := limits.Validate(); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			return DefLimits, fmt.Errorf("limits failed validation: %s", vErr.Translate(OptErrTranslations))
		}
		return DefLimits, err
	}
	return limits, nil
}

// NewLimiter returns a throttler with RequestsPerMinute requests per minute.
func (l *Limits) NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.RequestsPerMinute)), int(l.Burst))
}
