package transfer

import (
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/formatters"
)

// DefaultMaxProblems is how many problems a result message lists.
const DefaultMaxProblems = 10

var (
	msgFiles = &i18n.Message{
		ID:    "Files",
		One:   "{{.Count}} file",
		Other: "{{.Count}} files",
	}
	msgDirectories = &i18n.Message{
		ID:    "Directories",
		One:   "{{.Count}} directory",
		Other: "{{.Count}} directories",
	}
	msgCalculating = &i18n.Message{
		ID:    "Calculating",
		Other: "Calculating… {{.Files}}, {{.Directories}}",
	}
	msgTransferring = &i18n.Message{
		ID:    "Transferring",
		Other: "{{.Verb}} {{.Path}} ({{.Current}} of {{.Total}})",
	}
	msgSucceeded = &i18n.Message{
		ID:    "Succeeded",
		Other: "{{.Verb}} {{.Files}} and {{.Directories}} ({{.Bytes}}) in {{.Duration}}",
	}
	msgCancelled = &i18n.Message{
		ID:    "Cancelled",
		Other: "{{.Verb}} cancelled after {{.Files}} and {{.Directories}}",
	}
	msgProblems = &i18n.Message{
		ID:    "Problems",
		One:   "{{.Verb}} finished with {{.Count}} problem:",
		Other: "{{.Verb}} finished with {{.Count}} problems:",
	}
	msgMore = &i18n.Message{
		ID:    "More",
		Other: "+{{.Count}} more",
	}
	msgNameEmpty = &i18n.Message{
		ID:    "NameEmpty",
		Other: "Enter a name",
	}
	msgNameSeparator = &i18n.Message{
		ID:    "NameSeparator",
		Other: "A name cannot contain {{.Separator}}",
	}

	verbs = map[Kind]map[bool]*i18n.Message{
		Download: {
			true:  {ID: "DownloadingVerb", Other: "Downloading"},
			false: {ID: "DownloadedVerb", Other: "Downloaded"},
		},
		Upload: {
			true:  {ID: "UploadingVerb", Other: "Uploading"},
			false: {ID: "UploadedVerb", Other: "Uploaded"},
		},
		Delete: {
			true:  {ID: "DeletingVerb", Other: "Deleting"},
			false: {ID: "DeletedVerb", Other: "Deleted"},
		},
		EstimateOnly: {
			true:  {ID: "MeasuringVerb", Other: "Measuring"},
			false: {ID: "MeasuredVerb", Other: "Measured"},
		},
	}
)

// Messages renders user-facing operation text in the configured language.
type Messages struct {
	localizer *i18n.Localizer
	printer   *message.Printer
}

// NewMessages creates messages for the preferred languages, falling back
// to English.
func NewMessages(langs ...string) *Messages {
	bundle := i18n.NewBundle(language.English)

	tag := language.English
	if len(langs) > 0 {
		if parsed, err := language.Parse(langs[0]); err == nil {
			tag = parsed
		}
	}

	return &Messages{
		localizer: i18n.NewLocalizer(bundle, langs...),
		printer:   message.NewPrinter(tag),
	}
}

// Calculating is the estimation-phase progress text.
func (m *Messages) Calculating(files, dirs int) string {
	return m.render(msgCalculating, map[string]any{
		"Files":       m.count(msgFiles, files),
		"Directories": m.count(msgDirectories, dirs),
	}, nil)
}

// Transferring is the transfer-phase progress text.
func (m *Messages) Transferring(kind Kind, path string, current, total int64) string {
	return m.render(msgTransferring, map[string]any{
		"Verb":    m.verb(kind, true),
		"Path":    path,
		"Current": formatters.FormatBytes(current),
		"Total":   formatters.FormatBytes(total),
	}, nil)
}

// Result renders a summary: counts and duration on success, the first
// maxProblems problems and a "+N more" line otherwise.
func (m *Messages) Result(s Summary, maxProblems int) string {
	if maxProblems <= 0 {
		maxProblems = DefaultMaxProblems
	}

	files := m.count(msgFiles, s.FileCount)
	dirs := m.count(msgDirectories, s.DirectoryCount)

	if s.Cancelled {
		return m.render(msgCancelled, map[string]any{
			"Verb": m.verb(s.Kind, true), "Files": files, "Directories": dirs,
		}, nil)
	}

	if len(s.Problems) == 0 {
		return m.render(msgSucceeded, map[string]any{
			"Verb":        m.verb(s.Kind, false),
			"Files":       files,
			"Directories": dirs,
			"Bytes":       formatters.FormatBytes(s.ByteCount),
			"Duration":    formatters.FormatDuration(s.Duration),
		}, nil)
	}

	count := len(s.Problems)
	lines := []string{m.render(msgProblems, map[string]any{
		"Verb": m.verb(s.Kind, true), "Count": m.printer.Sprint(count),
	}, count)}

	for _, problem := range s.Problems[:min(count, maxProblems)] {
		lines = append(lines, "  "+describe(problem))
	}

	if count > maxProblems {
		lines = append(lines, m.render(msgMore, map[string]any{"Count": m.printer.Sprint(count - maxProblems)}, nil))
	}

	return strings.Join(lines, "\n")
}

// NameEmpty is the validation message for a blank name.
func (m *Messages) NameEmpty() string {
	return m.render(msgNameEmpty, nil, nil)
}

// NameSeparator is the validation message for a name holding a separator.
func (m *Messages) NameSeparator(separator string) string {
	return m.render(msgNameSeparator, map[string]any{"Separator": separator}, nil)
}

func (m *Messages) count(msg *i18n.Message, n int) string {
	return m.render(msg, map[string]any{"Count": m.printer.Sprint(n)}, n)
}

func (m *Messages) verb(kind Kind, ongoing bool) string {
	if byTense, ok := verbs[kind]; ok {
		return m.render(byTense[ongoing], nil, nil)
	}

	return kind.String()
}

func (m *Messages) render(msg *i18n.Message, data map[string]any, pluralCount any) string {
	text, err := m.localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: msg,
		TemplateData:   data,
		PluralCount:    pluralCount,
	})
	if err != nil {
		return msg.Other
	}

	return text
}

// describe renders one problem line, tagged with its category when known.
func describe(problem Problem) string {
	category := errors.Classify(problem.Err)

	text := problem.Err.Error()
	if problem.Path != "" && !strings.Contains(text, problem.Path) {
		text = problem.Path + ": " + text
	}

	if category == errors.CategoryUnknown {
		return text
	}

	return text + " [" + string(category) + "]"
}
