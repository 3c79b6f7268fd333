package agdist

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/carbocation/pfx"
)

// JSONConfig carries the settings shared by the command line tools. Every
// field can also be set by a flag; flags that are set explicitly win.
type JSONConfig struct {
	ConfigPath      string   `json:"-"`
	Input           string   `json:"input"`
	Delimiter       string   `json:"delimiter"`
	LabelColumns    []string `json:"label_columns"`
	Target          string   `json:"target"`
	MutationCount   string   `json:"mutation_count"`
	DropColumns     []string `json:"drop_columns"`
	DropFirstRow    bool     `json:"drop_first_row"`
	Predictors      string   `json:"predictors"`
	MaxPredictors   int      `json:"max_predictors"`
	OutputDir       string   `json:"output_dir"`
	FontSize        float64  `json:"font_size"`
	CutoffYear      int      `json:"cutoff_year"`
	TruncregBackend string   `json:"truncreg_backend"`
	Rscript         string   `json:"rscript"`
}

// DefaultJSONConfig holds the settings used when neither a config file nor a
// flag says otherwise.
func DefaultJSONConfig() JSONConfig {
	return JSONConfig{
		LabelColumns:    []string{"AG1", "AG2"},
		Target:          "AG-DIST",
		MutationCount:   "NUM-MUTATIONS",
		MaxPredictors:   20,
		OutputDir:       ".",
		FontSize:        5,
		TruncregBackend: "native",
	}
}

// ParseJSONConfigFromPath reads a config file. Fields the file leaves out keep
// their defaults.
func ParseJSONConfigFromPath(path string) (JSONConfig, error) {
	out := DefaultJSONConfig()
	out.ConfigPath = path

	expanded, err := ExpandHome(path)
	if err != nil {
		return out, err
	}

	f, err := os.Open(expanded)
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&out)
	if err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}

		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	for _, p := range []*string{&out.Input, &out.Predictors, &out.OutputDir} {
		if *p, err = ExpandHome(*p); err != nil {
			return out, err
		}
	}

	return out, nil
}

// DelimiterRune interprets the configured delimiter. The words "tab" and
// "space" are accepted since they are awkward to write in JSON and on the
// command line. An empty value means auto-detect and yields 0.
func DelimiterRune(s string) rune {
	switch s {
	case "":
		return 0
	case "tab", `\t`:
		return '\t'
	case "space":
		return ' '
	}

	return []rune(s)[0]
}

// ExplicitFlags returns the names of the flags that were set on the command
// line, so that config file values only fill in the rest.
func ExplicitFlags(fs *flag.FlagSet) map[string]bool {
	out := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		out[f.Name] = true
	})
	return out
}

// BindFlags registers a flag for each named config field, using the field's
// JSON name as the flag name and its current value as the default. usage maps
// the names to help text; fields not named are not exposed.
func (c *JSONConfig) BindFlags(fs *flag.FlagSet, usage map[string]string) {
	v := reflect.ValueOf(c).Elem()
	for i, field := range reflect.VisibleFields(v.Type()) {
		name := jsonName(field)
		help, exists := usage[name]
		if !exists {
			continue
		}

		switch ptr := v.Field(i).Addr().Interface().(type) {
		case *string:
			fs.StringVar(ptr, name, *ptr, help)
		case *int:
			fs.IntVar(ptr, name, *ptr, help)
		case *bool:
			fs.BoolVar(ptr, name, *ptr, help)
		case *float64:
			fs.Float64Var(ptr, name, *ptr, help)
		case *[]string:
			fs.Var((*stringList)(ptr), name, help+" (comma separated)")
		default:
			panic(fmt.Sprintf("no flag type for config field %s", field.Name))
		}
	}
}

// Override copies into c the fields of src whose flag names are in explicit.
func (c *JSONConfig) Override(src JSONConfig, explicit map[string]bool) {
	dst := reflect.ValueOf(c).Elem()
	from := reflect.ValueOf(src)
	for i, field := range reflect.VisibleFields(dst.Type()) {
		if explicit[jsonName(field)] {
			dst.Field(i).Set(from.Field(i))
		}
	}
}

func jsonName(field reflect.StructField) string {
	return strings.Split(field.Tag.Get("json"), ",")[0]
}

type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = nil
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}
