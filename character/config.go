package character

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	ModeLayered   = "layered"
	ModeExclusive = "exclusive"

	BlendSequential = "sequential"
	BlendAverage    = "average"
)

// Config describes a character in YAML.
//
//	name: hero
//	model: hero.twm
//	animations: hero.twa
//	layers:
//	  - {clip: idle, weight: 1, loop: true, play: true}
//	  - {clip: punch, root: mixamorig1_Spine}
type Config struct {
	Name       string   `yaml:"name"`
	Model      string   `yaml:"model,omitempty"`
	Animations string   `yaml:"animations"`
	Encoding   string   `yaml:"encoding,omitempty"`
	Mode       string   `yaml:"mode,omitempty"`
	Blend      string   `yaml:"blend,omitempty"`
	Transition *float32 `yaml:"transition,omitempty"`
	Layers     []*Layer `yaml:"layers"`
}

type Layer struct {
	Clip   string  `yaml:"clip"`
	Weight float32 `yaml:"weight"`
	Loop   bool    `yaml:"loop"`
	Root   string  `yaml:"root,omitempty"`
	Play   bool    `yaml:"play"`
	Smooth float32 `yaml:"smooth,omitempty"`
}

func ParseConfig(data []byte) (*Config, error) {
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrap(err, "character config")
	}
	if conf.Mode == "" {
		conf.Mode = ModeLayered
	}
	if conf.Blend == "" {
		conf.Blend = BlendSequential
	}
	switch conf.Mode {
	case ModeLayered, ModeExclusive:
	default:
		return nil, errors.Errorf("character config: unknown mode %q", conf.Mode)
	}
	switch conf.Blend {
	case BlendSequential, BlendAverage:
	default:
		return nil, errors.Errorf("character config: unknown blend %q", conf.Blend)
	}
	if conf.Animations == "" {
		return nil, errors.New("character config: animations is required")
	}
	return &conf, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
