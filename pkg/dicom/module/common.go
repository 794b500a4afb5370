// Package module holds the IOD modules of a Key Object Selection document.
// Each module renders its attributes through ToTags for dicom.WithModule.
package module

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/dicom/vr"
	"github.com/jpfielding/mado.go/pkg/opt"
)

// Date represents a DICOM Date (DA VR)
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// ISO renders the date as YYYY-MM-DD
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func NewDate(t time.Time) Date {
	return Date{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
	}
}

// ParseDate reads a DA value (YYYYMMDD); the legacy YYYY.MM.DD form is accepted
func ParseDate(s string) (Date, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	t, err := time.Parse("20060102", s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// ParseISODate reads a YYYY-MM-DD value
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// Time represents a DICOM Time (TM VR)
type Time struct {
	Hour   int
	Minute int
	Second int
	Nano   int
}

func (t Time) String() string {
	// Format as HHMMSS.FFFFFF
	return fmt.Sprintf("%02d%02d%02d.%06d", t.Hour, t.Minute, t.Second, t.Nano/1000)
}

// ISO renders the time as hh:mm:ss
func (t Time) ISO() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func NewTime(t time.Time) Time {
	return Time{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Nano:   t.Nanosecond(),
	}
}

// ParseTime reads a TM value; minutes, seconds and fraction are optional
func ParseTime(s string) (Time, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s, frac = s[:i], s[i+1:]
	}
	var t Time
	if len(s) < 2 || len(s)%2 != 0 || len(s) > 6 {
		return Time{}, fmt.Errorf("parsing time %q: bad length", s)
	}
	fields := []*int{&t.Hour, &t.Minute, &t.Second}
	for i := 0; i < len(s)/2; i++ {
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02d", fields[i]); err != nil {
			return Time{}, fmt.Errorf("parsing time %q: %w", s, err)
		}
	}
	if frac != "" {
		frac = (frac + "000000")[:6]
		var micros int
		if _, err := fmt.Sscanf(frac, "%06d", &micros); err != nil {
			return Time{}, fmt.Errorf("parsing time fraction %q: %w", frac, err)
		}
		t.Nano = micros * 1000
	}
	if t.Hour > 23 || t.Minute > 59 || t.Second > 60 {
		return Time{}, fmt.Errorf("parsing time %q: out of range", s)
	}
	return t, nil
}

// DateTime joins a DA and TM with an optional &ZZXX offset into an ISO 8601 string.
// Missing times yield a date-only value; an unparseable date yields "".
func DateTime(date, tm, offset string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	if strings.TrimSpace(tm) == "" {
		return d.ISO()
	}
	t, err := ParseTime(tm)
	if err != nil {
		return d.ISO()
	}
	out := d.ISO() + "T" + t.ISO()
	if z := ISOOffset(offset); z != "" {
		out += z
	}
	return out
}

// ISOOffset converts a DICOM timezone offset (+HHMM) into +HH:MM
func ISOOffset(offset string) string {
	offset = strings.TrimSpace(offset)
	if len(offset) != 5 || (offset[0] != '+' && offset[0] != '-') {
		return ""
	}
	return offset[:3] + ":" + offset[3:]
}

// SplitDateTime separates an ISO 8601 date-time into DA, TM and offset values
func SplitDateTime(iso string) (date, tm, offset string) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return "", "", ""
	}
	datePart, timePart, _ := strings.Cut(iso, "T")
	if d, err := ParseISODate(datePart); err == nil {
		date = d.String()
	}
	if timePart == "" {
		return date, "", ""
	}
	if strings.HasSuffix(timePart, "Z") {
		timePart = strings.TrimSuffix(timePart, "Z")
		offset = "+0000"
	} else if i := strings.LastIndexAny(timePart, "+-"); i > 0 {
		offset = strings.ReplaceAll(timePart[i:], ":", "")
		timePart = timePart[:i]
	}
	if t, err := ParseTime(timePart); err == nil {
		tm = fmt.Sprintf("%02d%02d%02d", t.Hour, t.Minute, t.Second)
		if t.Nano > 0 {
			tm += fmt.Sprintf(".%06d", t.Nano/1000)
		}
	}
	return date, tm, offset
}

// PersonName represents a DICOM Person Name (PN VR)
type PersonName struct {
	FamilyName string
	GivenName  string
	MiddleName string
	Prefix     string
	Suffix     string
}

func (p PersonName) String() string {
	// DICOM format: Family^Given^Middle^Prefix^Suffix, trailing empty components dropped
	parts := []string{p.FamilyName, p.GivenName, p.MiddleName, p.Prefix, p.Suffix}
	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}
	return strings.Join(parts[:end], "^")
}

// IsEmpty reports a name with no components
func (p PersonName) IsEmpty() bool {
	return p == PersonName{}
}

// ParsePersonName reads the alphabetic group of a PN value
func ParsePersonName(s string) PersonName {
	alphabetic, _, _ := strings.Cut(s, "=")
	parts := strings.Split(alphabetic, "^")
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return PersonName{
		FamilyName: parts[0],
		GivenName:  parts[1],
		MiddleName: parts[2],
		Prefix:     parts[3],
		Suffix:     parts[4],
	}
}

// Code is a coded entry triple
type Code struct {
	Value   string
	Scheme  string
	Meaning string
	Version string
}

// ToTags renders the code as the attributes of one code sequence item
func (c Code) ToTags() []IODElement {
	tags := []IODElement{
		{Tag: tag.CodeValue, Value: c.Value},
		{Tag: tag.CodingSchemeDesignator, Value: c.Scheme},
		{Tag: tag.CodeMeaning, Value: c.Meaning},
	}
	if c.Version != "" {
		tags = append(tags, IODElement{Tag: tag.CodingSchemeVersion, Value: c.Version})
	}
	return tags
}

// Common module interfaces
type IODModule interface {
	ToTags() []IODElement
}

// IODElement is one attribute a module contributes. VR overrides the dictionary VR
// when set; Items renders a sequence with one nested element list per item.
type IODElement struct {
	Tag   tag.Tag
	VR    vr.VR
	Value interface{}
	Items [][]IODElement
}

// type2 keeps a Type 2 attribute present even when the source never carried it.
// A rendered dataset therefore reads an absent Type 2 value back as empty.
func type2(t opt.Text) opt.Text {
	if t.State() == opt.StateUnset {
		return opt.Empty()
	}
	return t
}

// sequence renders a sequence element, always present even without items
func sequence(t tag.Tag, items ...[]IODElement) IODElement {
	if items == nil {
		items = [][]IODElement{}
	}
	return IODElement{Tag: t, Items: items}
}
