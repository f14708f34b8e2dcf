// Package validation checks configuration and decoded metadata payloads.
//
// Struct tag validation uses go-playground/validator. Field names in
// messages come from the mapstructure tag, then the json tag, then the
// snake_cased Go field name.
//
//	type Cue struct {
//	    ID   string `json:"id" validate:"required"`
//	    Text string `json:"text" validate:"max=512"`
//	}
//	err := validation.Validate(cue)
//
// Programmatic checks collect errors and report them together:
//
//	v := validation.New()
//	v.Required("name", cfg.Name).Min("queue_capacity", cfg.QueueCapacity, 0)
//	if err := v.Validate(); err != nil { ... }
package validation
