package feedback

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is used when a requested locale has no catalog.
const BaseLocale = "en-US"

// Message keys.
const (
	KeyTitleTaskCreated     = "title.task_created"
	KeyTitleTaskUpdated     = "title.task_updated"
	KeyTitleTaskDeleted     = "title.task_deleted"
	KeyTitleTaskMoved       = "title.task_moved"
	KeyTitleProjectArchived = "title.project_archived"
	KeyTaskCreated          = "task.created"
	KeyTaskUpdated          = "task.updated"
	KeyTaskDeleted          = "task.deleted"
	KeyTaskMoved            = "task.moved"
	KeyTaskInProgress       = "task.in_progress"
	KeyTaskCompleted        = "task.completed"
	KeyTaskFallbackTitle    = "task.fallback_title"
	KeyProjectArchived      = "project.archived"
	KeyProjectLeadUnknown   = "project.lead_unknown"
	KeyErrLoadProject       = "error.load_project"
	KeyErrCreateTask        = "error.create_task"
	KeyErrUpdateTask        = "error.update_task"
	KeyErrDeleteTask        = "error.delete_task"
	KeyErrMoveTask          = "error.move_task"
	KeyErrArchiveProject    = "error.archive_project"
	KeyFriendlyNetwork      = "friendly.network"
	KeyFriendlyPermission   = "friendly.permission"
	KeyFriendlyTimeout      = "friendly.timeout"
	KeyFriendlyDefault      = "friendly.default"
)

//go:embed locales/*/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Messages renders localized notification text.
type Messages struct {
	locale  string
	printer *message.Printer
}

// LoadMessages builds a catalog from the embedded locale files and returns a
// renderer for locale, falling back to BaseLocale.
func LoadMessages(locale string) (*Messages, error) {
	return LoadMessagesFS(embeddedLocales, locale)
}

// LoadMessagesFS is LoadMessages over an arbitrary filesystem.
func LoadMessagesFS(fsys fs.FS, locale string) (*Messages, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	byLocale := map[string]map[string]string{}
	tags := map[string]language.Tag{}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		dir := path.Base(path.Dir(p))
		if strings.TrimSpace(file.Locale) != dir {
			return nil, fmt.Errorf("catalog %s: locale %q must match path locale %q", p, file.Locale, dir)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", file.Locale, err)
		}
		tags[dir] = tag
		if byLocale[dir] == nil {
			byLocale[dir] = map[string]string{}
		}
		for key, value := range file.Messages {
			byLocale[dir][strings.TrimSpace(key)] = value
		}
	}

	base, ok := byLocale[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	builder := catalog.NewBuilder()
	for loc, messages := range byLocale {
		for key, value := range base {
			if _, ok := messages[key]; !ok {
				messages[key] = value
			}
		}
		for _, tag := range registerTags(tags[loc]) {
			for key, value := range messages {
				if err := builder.SetString(tag, key, value); err != nil {
					return nil, fmt.Errorf("locale %s: key %q: %w", loc, key, err)
				}
			}
		}
	}

	chosen, resolved := tags[BaseLocale], BaseLocale
	if tag, ok := tags[strings.TrimSpace(locale)]; ok {
		chosen, resolved = tag, strings.TrimSpace(locale)
	}

	return &Messages{
		locale:  resolved,
		printer: message.NewPrinter(chosen, message.Catalog(builder)),
	}, nil
}

// registerTags returns tag and, when distinct, its base language so lookups
// that walk parent tags still resolve.
func registerTags(tag language.Tag) []language.Tag {
	tags := []language.Tag{tag}
	if base, conf := tag.Base(); conf != language.No {
		if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
			tags = append(tags, baseTag)
		}
	}
	return tags
}

// Locale returns the locale actually used.
func (m *Messages) Locale() string {
	return m.locale
}

// Text renders key with args. Unknown keys render as the key itself.
func (m *Messages) Text(key string, args ...any) string {
	return m.printer.Sprintf(key, args...)
}

// MustLoadMessages is LoadMessages for the embedded catalogs, panicking on error.
func MustLoadMessages(locale string) *Messages {
	m, err := LoadMessages(locale)
	if err != nil {
		panic(err)
	}
	return m
}
