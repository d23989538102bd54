package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = ".ghasexport.yaml"

// ApplyFile reads a YAML config file whose keys are flag names and applies
// each value to the matching flag that was not set on the command line. It
// returns the file that was used, or "" when path is empty and DefaultFile
// does not exist.
func ApplyFile(path string, flagSet *pflag.FlagSet) (string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return "", goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var errs []error
	flagSet.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := flagSet.Set(f.Name, flagValue(v.Get(f.Name))); err != nil {
			errs = append(errs, goerr.Wrap(err, "config key "+strconv.Quote(f.Name)))
		}
	})
	for _, key := range v.AllKeys() {
		if flagSet.Lookup(key) == nil {
			errs = append(errs, goerr.New("config key "+strconv.Quote(key)+": unknown option"))
		}
	}
	if len(errs) > 0 {
		return v.ConfigFileUsed(), goerr.Wrap(goerr.Join(errs...), "invalid config file", goerr.V("path", path))
	}
	return v.ConfigFileUsed(), nil
}

func flagValue(raw any) string {
	switch val := raw.(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}
