package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/joho/godotenv"
)

const paramTag = "param"

// Param is a resolved parameter key and its value.
type Param struct {
	Key   string
	Value string
}

// Load builds a Config from the defaults, the device file and the system
// file, in that order. Empty paths are skipped. Files use KEY=VALUE lines;
// text after '#' or ';' is a comment.
func Load(devicePath, systemPath string) (*Config, error) {
	c := Default()

	for _, path := range []string{devicePath, systemPath} {
		if path == "" {
			continue
		}

		params, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading parameter file %s: %w", path, err)
		}

		if err := c.Apply(params); err != nil {
			return nil, fmt.Errorf("applying parameter file %s: %w", path, err)
		}
	}

	return c, nil
}

// ParseOverrides parses a comma separated list of KEY=VALUE pairs, as given
// on the command line.
func ParseOverrides(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]string{}, nil
	}

	params, err := godotenv.Unmarshal(strings.ReplaceAll(s, ",", "\n"))
	if err != nil {
		return nil, fmt.Errorf("parsing overrides %q: %w", s, err)
	}

	return params, nil
}

// Apply sets the parameters named by the keys of params. Unknown keys are
// reported and ignored, since device files commonly carry keys the
// simulator does not model.
func (c *Config) Apply(params map[string]string) error {
	fields := map[string]*structs.Field{}
	for _, f := range structs.New(c).Fields() {
		fields[f.Tag(paramTag)] = f
	}

	for key, raw := range params {
		f, ok := fields[key]
		if !ok {
			log.Printf("ignoring unknown parameter %s", key)
			continue
		}

		v, err := parseValue(f.Value(), stripComment(raw))
		if err != nil {
			return fmt.Errorf("parameter %s: %w", key, err)
		}

		if err := f.Set(v); err != nil {
			return fmt.Errorf("parameter %s: %w", key, err)
		}
	}

	return nil
}

// Params lists every parameter with its current value, in declaration order.
func (c *Config) Params() []Param {
	var params []Param

	for _, f := range structs.New(c).Fields() {
		params = append(params, Param{
			Key:   f.Tag(paramTag),
			Value: fmt.Sprint(f.Value()),
		})
	}

	return params
}

func stripComment(s string) string {
	if i := strings.IndexAny(s, ";#"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}

func parseValue(current any, s string) (any, error) {
	switch current.(type) {
	case int:
		return strconv.Atoi(s)
	case uint64:
		return strconv.ParseUint(s, 10, 64)
	case float64:
		return strconv.ParseFloat(s, 64)
	case bool:
		return strconv.ParseBool(s)
	case RowBufferPolicy:
		return ParseRowBufferPolicy(s)
	case SchedulingPolicy:
		return ParseSchedulingPolicy(s)
	case QueuingStructure:
		return ParseQueuingStructure(s)
	case AddressMappingScheme:
		return ParseAddressMappingScheme(s)
	case StorageMode:
		return ParseStorageMode(s)
	case ReliabilityMode:
		return ParseReliabilityMode(s)
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", current)
	}
}
