// Package options validates the report options passed by Code Insight.
package options

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

// Options are the validated report options.
type Options struct {
	IncludeChildProjects   bool
	CVSSVersion            vulnerability.CVSSVersion
	IncludeAssociatedFiles bool
}

func Default() Options {
	return Options{
		IncludeChildProjects:   true,
		CVSSVersion:            vulnerability.CVSS3,
		IncludeAssociatedFiles: false,
	}
}

type rawOptions struct {
	IncludeChildProjects   string `json:"includeChildProjects" validate:"oneof=true false"`
	CVSSVersion            string `json:"cvssVersion" validate:"oneof=2.0 3.x"`
	IncludeAssociatedFiles string `json:"includeAssociatedFiles" validate:"oneof=true false"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		return name
	})
	return v
}

// Parse reads the JSON object of report options. Values may be strings or
// booleans and missing options take their default. Every invalid option is
// reported; when errors are returned the options must not be used.
func Parse(raw string) (Options, []error) {
	defaults := Default()
	values := rawOptions{
		IncludeChildProjects:   strconv.FormatBool(defaults.IncludeChildProjects),
		CVSSVersion:            string(defaults.CVSSVersion),
		IncludeAssociatedFiles: strconv.FormatBool(defaults.IncludeAssociatedFiles),
	}

	if strings.TrimSpace(raw) != "" {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return Options{}, []error{xerrors.Errorf("parsing report options: %w", err)}
		}

		var errs []error
		for key, value := range decoded {
			var target *string
			switch key {
			case "includeChildProjects":
				target = &values.IncludeChildProjects
			case "cvssVersion":
				target = &values.CVSSVersion
			case "includeAssociatedFiles":
				target = &values.IncludeAssociatedFiles
			default:
				slog.Debug("Ignoring unknown report option", slog.String("option", key))
				continue
			}

			s, err := toString(value)
			if err != nil {
				errs = append(errs, xerrors.Errorf("report option %s: %w", key, err))
				continue
			}
			*target = s
		}
		if len(errs) > 0 {
			return Options{}, errs
		}
	}

	if err := validate.Struct(values); err != nil {
		var fieldErrors validator.ValidationErrors
		if !xerrors.As(err, &fieldErrors) {
			return Options{}, []error{xerrors.Errorf("validating report options: %w", err)}
		}
		errs := make([]error, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			errs = append(errs, fmt.Errorf("invalid value %q for report option %s, allowed values: %s",
				fe.Value(), fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		}
		return Options{}, errs
	}

	return Options{
		IncludeChildProjects:   values.IncludeChildProjects == "true",
		CVSSVersion:            vulnerability.CVSSVersion(values.CVSSVersion),
		IncludeAssociatedFiles: values.IncludeAssociatedFiles == "true",
	}, nil
}

func toString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if b := strings.ToLower(s); b == "true" || b == "false" {
			return b, nil
		}
		return s, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		// cvssVersion 2.0 sent as a number
		return fmt.Sprintf("%.1f", v), nil
	}
	return "", fmt.Errorf("unsupported value type %T", value)
}
