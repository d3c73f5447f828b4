package wizard

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/desertthunder/marquee/internal/models"
)

// Scope decides when a [Rule] is enforced.
type Scope int

const (
	// ScopeStep rules gate GoNext and are re-checked on Submit.
	ScopeStep Scope = iota
	// ScopeSubmit rules block Submit only; navigation away from the step is allowed.
	ScopeSubmit
	// ScopeAdvisory rules never block and are reported through Advisories.
	ScopeAdvisory
)

func (s Scope) String() string {
	switch s {
	case ScopeStep:
		return "step"
	case ScopeSubmit:
		return "submit"
	case ScopeAdvisory:
		return "advisory"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Rule checks a form and records a message per failing field.
type Rule struct {
	Name  string
	Scope Scope
	Check func(f models.FormState, errs models.ValidationErrors)
}

// FileLimit bounds an attached file by size and MIME type.
// Types are exact matches; Prefixes match families like "image/".
type FileLimit struct {
	MaxBytes int64
	Types    []string
	Prefixes []string
}

var (
	VideoLimit     = FileLimit{MaxBytes: 500 * humanize.MByte, Prefixes: []string{"video/"}}
	CoverLimit     = FileLimit{MaxBytes: 5 * humanize.MByte, Prefixes: []string{"image/"}}
	AvatarLimit    = FileLimit{MaxBytes: 2 * humanize.MByte, Prefixes: []string{"image/"}}
	ThumbnailLimit = AvatarLimit
	AudioLimit     = FileLimit{
		MaxBytes: 20 * humanize.MByte,
		Types:    []string{"audio/mpeg", "audio/wav", "audio/x-wav", "audio/ogg", "audio/flac"},
	}
)

// Allows reports whether mimeType satisfies the limit's type restrictions.
func (l FileLimit) Allows(mimeType string) bool {
	if len(l.Types) == 0 && len(l.Prefixes) == 0 {
		return true
	}
	mimeType = strings.ToLower(mimeType)
	if slices.Contains(l.Types, mimeType) {
		return true
	}
	for _, p := range l.Prefixes {
		if strings.HasPrefix(mimeType, p) {
			return true
		}
	}
	return false
}

func (l FileLimit) describeTypes() string {
	if len(l.Types) > 0 {
		return strings.Join(l.Types, ", ")
	}
	families := make([]string, len(l.Prefixes))
	for i, p := range l.Prefixes {
		families[i] = strings.TrimSuffix(p, "/")
	}
	return strings.Join(families, ", ")
}

// Label turns a field path into a display label: "category_id" -> "Category", "credits.director" -> "Credits director".
func Label(field string) string {
	s := strings.TrimSuffix(field, "_id")
	s = strings.NewReplacer("_", " ", ".", " ").Replace(s)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return field
	}
	first, rest, _ := strings.Cut(s, " ")
	first = cases.Title(language.English).String(first)
	if rest == "" {
		return first
	}
	return first + " " + rest
}

// Required fails when field is missing, nil, or a blank string.
func Required(field string) Rule {
	return Rule{
		Name:  "required:" + field,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			v, ok := f.Get(field)
			if !ok || v == nil {
				errs.Add(field, Label(field)+" is required")
				return
			}
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				errs.Add(field, Label(field)+" is required")
			}
		},
	}
}

// RequiredFile fails when no file is attached to field.
func RequiredFile(field string) Rule {
	return Rule{
		Name:  "file:" + field,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			if f.File(field) == nil {
				errs.Add(field, Label(field)+" is required")
			}
		},
	}
}

// FileConstraint enforces limit on an attached file. Missing files pass; pair with RequiredFile.
func FileConstraint(field string, limit FileLimit) Rule {
	return Rule{
		Name:  "file-limit:" + field,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			h := f.File(field)
			if h == nil {
				return
			}
			if limit.MaxBytes > 0 && h.Size > limit.MaxBytes {
				errs.Add(field, fmt.Sprintf("%s must be %s or smaller (got %s)",
					Label(field), humanize.Bytes(uint64(limit.MaxBytes)), humanize.Bytes(uint64(h.Size))))
				return
			}
			if !limit.Allows(h.MIMEType) {
				errs.Add(field, fmt.Sprintf("%s must be one of: %s (got %s)", Label(field), limit.describeTypes(), h.MIMEType))
			}
		},
	}
}

// PricedUnlessFree requires price > 0 unless the free flag is set.
func PricedUnlessFree(priceField, freeField string) Rule {
	return Rule{
		Name:  "priced:" + priceField,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			if f.Bool(freeField) {
				return
			}
			n, ok := f.Number(priceField)
			if !ok || n <= 0 {
				errs.Add(priceField, Label(priceField)+" must be greater than 0 unless marked free")
			}
		},
	}
}

// PositiveInt requires a whole number greater than zero.
func PositiveInt(field string) Rule {
	return Rule{
		Name:  "positive:" + field,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			n, ok := f.Number(field)
			if !ok || n < 1 || n != float64(int64(n)) {
				errs.Add(field, Label(field)+" must be a whole number greater than 0")
			}
		},
	}
}

// Email requires a parseable address when the field is non-empty.
func Email(field string) Rule {
	return Rule{
		Name:  "email:" + field,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			s := f.String(field)
			if s == "" {
				return
			}
			if _, err := mail.ParseAddress(s); err != nil {
				errs.Add(field, Label(field)+" must be a valid email address")
			}
		},
	}
}

// ListItemsRequire requires key to be set on every entry of list.
// Errors are keyed by the entry path, e.g. "judging_criteria.1.name".
func ListItemsRequire(list, key string) Rule {
	return Rule{
		Name:  "list-required:" + list + "." + key,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			for i := range f.List(list) {
				path := fmt.Sprintf("%s.%d.%s", list, i, key)
				if f.String(path) == "" {
					errs.Add(path, fmt.Sprintf("%s #%d needs a %s", Label(list), i+1, strings.ToLower(Label(key))))
				}
			}
		},
	}
}

// Tally is a running sum against a target, e.g. criteria weights against 100.
type Tally struct {
	Sum    float64
	Target float64
}

// Met reports whether the sum equals the target exactly.
func (t Tally) Met() bool {
	return t.Sum == t.Target
}

func (t Tally) String() string {
	return fmt.Sprintf("%s/%s", trimFloat(t.Sum), trimFloat(t.Target))
}

// SumOf adds up key across every entry of list. Non-numeric entries count as 0.
func SumOf(f models.FormState, list, key string) float64 {
	var sum float64
	for i := range f.List(list) {
		if n, ok := f.Number(fmt.Sprintf("%s.%d.%s", list, i, key)); ok {
			sum += n
		}
	}
	return sum
}

// WeightsSumTo requires key across list to add up to exactly target.
// It blocks Submit but not navigation.
func WeightsSumTo(list, key string, target float64) Rule {
	return Rule{
		Name:  "sum:" + list,
		Scope: ScopeSubmit,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			t := Tally{Sum: SumOf(f, list, key), Target: target}
			if !t.Met() {
				errs.Add(list, fmt.Sprintf("%s %s must add up to %s (currently %s)",
					Label(list), strings.ToLower(Label(key)), trimFloat(target), trimFloat(t.Sum)))
			}
		},
	}
}

// SharesAdvisory reports when key across list differs from target without blocking.
func SharesAdvisory(list, key string, target float64) Rule {
	return Rule{
		Name:  "shares:" + list,
		Scope: ScopeAdvisory,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			if len(f.List(list)) == 0 {
				return
			}
			t := Tally{Sum: SumOf(f, list, key), Target: target}
			if !t.Met() {
				errs.Add(list, fmt.Sprintf("%s %s add up to %s, not %s",
					Label(list), strings.ToLower(Label(key)), trimFloat(t.Sum), trimFloat(target)))
			}
		},
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// ParseDate accepts the date and datetime layouts the marketplace forms send.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// DateOrder requires both fields to be dates with end strictly after start.
// Empty fields are left to Required.
func DateOrder(start, end string) Rule {
	return Rule{
		Name:  "dates:" + start + ":" + end,
		Scope: ScopeStep,
		Check: func(f models.FormState, errs models.ValidationErrors) {
			startValue, endValue := f.String(start), f.String(end)
			var startAt, endAt time.Time
			var err error

			if startValue != "" {
				if startAt, err = ParseDate(startValue); err != nil {
					errs.Add(start, Label(start)+" must be a date (YYYY-MM-DD)")
				}
			}
			if endValue != "" {
				if endAt, err = ParseDate(endValue); err != nil {
					errs.Add(end, Label(end)+" must be a date (YYYY-MM-DD)")
				}
			}
			if startAt.IsZero() || endAt.IsZero() {
				return
			}
			if !endAt.After(startAt) {
				errs.Add(end, fmt.Sprintf("%s must be after %s", Label(end), strings.ToLower(Label(start))))
			}
		},
	}
}

func trimFloat(f float64) string {
	return models.ScalarString(f)
}
