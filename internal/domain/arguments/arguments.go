// Package arguments turns module argument schemas into command line flags
// and collects the values a user supplied for them.
package arguments

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/forPelevin/lecturecut/internal/types"
)

var ErrOverlap = errors.New("argument names are overlapping")

// Set is the schema one owner (the host or a module) contributes.
type Set struct {
	Owner string
	Args  []types.Argument
}

// Validate fails when a long name, or a non-zero short flag, appears more
// than once across all sets.
func Validate(sets ...Set) error {
	longs := make(map[string]string)
	shorts := make(map[byte]string)
	for _, set := range sets {
		for _, a := range set.Args {
			if a.Long == "" {
				return fmt.Errorf("%s declares an argument without a name", set.Owner)
			}
			if owner, ok := longs[a.Long]; ok {
				return fmt.Errorf("%w: --%s is declared by %s and %s", ErrOverlap, a.Long, owner, set.Owner)
			}
			longs[a.Long] = set.Owner
			if a.Short == 0 {
				continue
			}
			if owner, ok := shorts[a.Short]; ok {
				return fmt.Errorf("%w: -%c is declared by %s and %s", ErrOverlap, a.Short, owner, set.Owner)
			}
			shorts[a.Short] = set.Owner
		}
	}
	return nil
}

// Register adds one flag per argument: flags become booleans, everything
// else a string. Validate must have accepted args first.
func Register(fs *pflag.FlagSet, args []types.Argument) {
	for _, a := range args {
		short := ""
		if a.Short != 0 {
			short = string(rune(a.Short))
		}
		if a.IsFlag {
			fs.BoolP(a.Long, short, false, a.Description)
		} else {
			fs.StringP(a.Long, short, "", a.Description)
		}
		if a.Required {
			_ = cobra.MarkFlagRequired(fs, a.Long)
		}
	}
}

// Resolve returns the values supplied for args: flags only when set,
// values only when given. Missing optional arguments are omitted.
func Resolve(fs *pflag.FlagSet, args []types.Argument) ([]types.ArgumentResult, error) {
	var out []types.ArgumentResult
	for _, a := range args {
		if a.IsFlag {
			on, err := fs.GetBool(a.Long)
			if err != nil {
				return nil, fmt.Errorf("read --%s: %w", a.Long, err)
			}
			if on {
				out = append(out, types.ArgumentResult{Long: a.Long, Value: "true"})
			}
			continue
		}
		if !fs.Changed(a.Long) {
			continue
		}
		v, err := fs.GetString(a.Long)
		if err != nil {
			return nil, fmt.Errorf("read --%s: %w", a.Long, err)
		}
		out = append(out, types.ArgumentResult{Long: a.Long, Value: v})
	}
	return out, nil
}

func Has(args []types.Argument, long string) bool {
	for _, a := range args {
		if a.Long == long {
			return true
		}
	}
	return false
}

func Supplied(results []types.ArgumentResult, long string) bool {
	for _, r := range results {
		if r.Long == long {
			return true
		}
	}
	return false
}
