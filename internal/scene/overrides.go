package scene

import (
	"fmt"
	"strconv"

	"github.com/five82/taper/internal/errors"
)

// EncoderSettings is the typed per-run encoder configuration. Configuration
// is never carried as a flag string to be re-parsed mid-pipeline; overrides
// are applied to named fields.
type EncoderSettings struct {
	// Encoder names the external encoder backend.
	Encoder string
	// Passes is the number of encoder passes per scene.
	Passes int
	// Effort is the encoder's speed/effort preset. Searches may temporarily
	// widen it and restore it before the final encode.
	Effort int
	// PhotonNoise is the synthetic grain strength, 0 when disabled.
	PhotonNoise int
	// ExtraSplitLen caps scene length before forced splitting, 0 disables.
	ExtraSplitLen int
	// MinSceneLen is the minimum allowed scene length in frames.
	MinSceneLen int
}

// DefaultEncoderSettings returns the settings used when a run supplies none.
func DefaultEncoderSettings() EncoderSettings {
	return EncoderSettings{
		Encoder: "svt-av1",
		Passes:  1,
		Effort:  4,
	}
}

// WithEffort returns a copy with the effort preset replaced.
func (e EncoderSettings) WithEffort(effort int) EncoderSettings {
	e.Effort = effort
	return e
}

// Overrides returns the persistable per-scene override block derived from
// the settings. The block's Parameter is filled in per scene.
func (e EncoderSettings) Overrides() Overrides {
	return Overrides{
		Encoder:       e.Encoder,
		Passes:        e.Passes,
		Effort:        e.Effort,
		PhotonNoise:   e.PhotonNoise,
		ExtraSplitLen: e.ExtraSplitLen,
		MinSceneLen:   e.MinSceneLen,
	}
}

// Overrides is the per-scene invocation block persisted inside the scene
// file. It is the durable home of the scene's parameter value.
type Overrides struct {
	Encoder       string  `json:"encoder,omitempty"`
	Passes        int     `json:"passes,omitempty"`
	Parameter     float64 `json:"parameter"`
	Effort        int     `json:"effort"`
	PhotonNoise   int     `json:"photon_noise,omitempty"`
	ExtraSplitLen int     `json:"extra_splits_len"`
	MinSceneLen   int     `json:"min_scene_len"`
}

// Set applies an override to the named field. Unknown fields and
// unparseable values are configuration errors.
func (o *Overrides) Set(field, value string) error {
	switch field {
	case "encoder":
		o.Encoder = value
		return nil
	case "passes":
		return setInt(&o.Passes, field, value)
	case "parameter":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid value %q for override %q", value, field))
		}
		o.Parameter = v
		return nil
	case "effort":
		return setInt(&o.Effort, field, value)
	case "photon_noise":
		return setInt(&o.PhotonNoise, field, value)
	case "extra_splits_len":
		return setInt(&o.ExtraSplitLen, field, value)
	case "min_scene_len":
		return setInt(&o.MinSceneLen, field, value)
	default:
		return errors.NewConfigError(fmt.Sprintf("unknown override field %q", field))
	}
}

func setInt(dst *int, field, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return errors.NewConfigError(fmt.Sprintf("invalid value %q for override %q", value, field))
	}
	*dst = v
	return nil
}
