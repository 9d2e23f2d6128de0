package ivr

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

// MainMenu is the menu every call starts at.
const MainMenu = "main"

var ErrInvalidMenus = errors.New("invalid menu configuration")

// Prompt is a bilingual menu message. The local text is spoken first.
type Prompt struct {
	Local   string `yaml:"local" json:"local,omitempty" jsonschema:"description=Text in the caller's language"`
	English string `yaml:"english" json:"english,omitempty" jsonschema:"description=English text spoken after the local text"`
}

// Spoken joins both languages into the text handed to playback.
func (p Prompt) Spoken() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{p.Local, p.English} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (p Prompt) IsZero() bool { return p.Spoken() == "" }

type Option struct {
	// Key is matched case-insensitively against spoken or typed input.
	Key string `yaml:"key" json:"key" jsonschema:"required"`
	// Aliases are matched like Key, e.g. the key in the caller's script.
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Label   string   `yaml:"label" json:"label,omitempty"`
	// Action is the command reported to the host when the option is picked.
	Action string `yaml:"action" json:"action" jsonschema:"required"`
	// Next is the menu entered after the option unless the host decides
	// otherwise.
	Next string `yaml:"next,omitempty" json:"next,omitempty"`
}

// Menu is a named prompt with either options to pick from or, when it has
// none, an extractor that pulls a value out of free text.
type Menu struct {
	Name    string   `yaml:"name" json:"name" jsonschema:"required"`
	Prompt  Prompt   `yaml:"prompt" json:"prompt" jsonschema:"required"`
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`
	// Extract names the extractor of a free-text menu.
	Extract string `yaml:"extract,omitempty" json:"extract,omitempty" jsonschema:"enum=order_id,enum=product_name"`
	// Action is the command reported with the extracted value.
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
}

func (m Menu) IsFreeText() bool { return len(m.Options) == 0 }

type MenuSet struct {
	Menus []Menu `yaml:"menus" json:"menus" jsonschema:"required,minItems=1"`
}

func (s MenuSet) Menu(name string) (Menu, bool) {
	for _, menu := range s.Menus {
		if menu.Name == name {
			return menu, true
		}
	}
	return Menu{}, false
}

// Validate checks that the set has a main menu, that names are unique and that
// every reference resolves. Extractor names are checked against extractors.
func (s MenuSet) Validate(extractors map[string]Extractor) error {
	var errs []error
	names := make(map[string]bool, len(s.Menus))
	for _, menu := range s.Menus {
		if menu.Name == "" {
			errs = append(errs, fmt.Errorf("menu without a name"))
			continue
		}
		if names[menu.Name] {
			errs = append(errs, fmt.Errorf("duplicate menu %q", menu.Name))
		}
		names[menu.Name] = true
	}
	if !names[MainMenu] {
		errs = append(errs, fmt.Errorf("missing %q menu", MainMenu))
	}

	for _, menu := range s.Menus {
		if menu.Prompt.IsZero() {
			errs = append(errs, fmt.Errorf("menu %q: empty prompt", menu.Name))
		}
		if menu.IsFreeText() {
			if _, ok := extractors[menu.Extract]; !ok {
				errs = append(errs, fmt.Errorf("menu %q: unknown extractor %q", menu.Name, menu.Extract))
			}
			if menu.Action == "" {
				errs = append(errs, fmt.Errorf("menu %q: free-text menu without action", menu.Name))
			}
			continue
		}
		for i, option := range menu.Options {
			if strings.TrimSpace(option.Key) == "" {
				errs = append(errs, fmt.Errorf("menu %q option %d: empty key", menu.Name, i+1))
			}
			if option.Action == "" {
				errs = append(errs, fmt.Errorf("menu %q option %d: empty action", menu.Name, i+1))
			}
			if option.Next != "" && !names[option.Next] {
				errs = append(errs, fmt.Errorf("menu %q option %d: unknown next menu %q", menu.Name, i+1, option.Next))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMenus, errors.Join(errs...))
	}
	return nil
}

var defaultMenus = MenuSet{
	Menus: []Menu{
		{
			Name: MainMenu,
			Prompt: Prompt{
				Local:   "স্বাগতম। অর্ডারের অবস্থা জানতে অর্ডার বলুন, পণ্যের তথ্যের জন্য প্রোডাক্ট বলুন, অথবা এজেন্টের সাথে কথা বলতে এজেন্ট বলুন।",
				English: "Welcome. Say order to check your order status, product for product information, or agent to talk to a person.",
			},
			Options: []Option{
				{Key: "order", Aliases: []string{"অর্ডার"}, Label: "Check order status", Action: "check_order", Next: "order"},
				{Key: "product", Aliases: []string{"প্রোডাক্ট", "পণ্য"}, Label: "Product information", Action: "product_info", Next: "product"},
				{Key: "agent", Aliases: []string{"এজেন্ট"}, Label: "Talk to an agent", Action: "talk_to_agent"},
			},
		},
		{
			Name: "order",
			Prompt: Prompt{
				Local:   "অনুগ্রহ করে আপনার অর্ডার নম্বর বলুন।",
				English: "Please say your order ID.",
			},
			Extract: "order_id",
			Action:  "order_lookup",
		},
		{
			Name: "product",
			Prompt: Prompt{
				Local:   "আপনি কোন পণ্য সম্পর্কে জানতে চান?",
				English: "Which product would you like to know about?",
			},
			Extract: "product_name",
			Action:  "product_lookup",
		},
	},
}

// NotUnderstood is spoken before the prompt when a free-text menu could not
// extract a value.
var NotUnderstood = Prompt{
	Local:   "দুঃখিত, আমি বুঝতে পারিনি। অনুগ্রহ করে আবার বলুন।",
	English: "Sorry, I didn't understand. Please repeat.",
}

// DefaultMenus returns a copy of the built-in menus that callers may modify.
func DefaultMenus() MenuSet {
	var menus MenuSet
	if err := copier.CopyWithOption(&menus, &defaultMenus, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("failed to copy default menus: %v", err))
	}
	return menus
}

// ParseMenus decodes a YAML menu set and validates it against the built-in
// extractors.
func ParseMenus(data []byte) (MenuSet, error) {
	var menus MenuSet
	if err := yaml.Unmarshal(data, &menus); err != nil {
		return MenuSet{}, fmt.Errorf("%w: %w", ErrInvalidMenus, err)
	}
	if err := menus.Validate(DefaultExtractors()); err != nil {
		return MenuSet{}, err
	}
	return menus, nil
}

func LoadMenus(path string) (MenuSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MenuSet{}, fmt.Errorf("failed to read menus: %w", err)
	}
	return ParseMenus(data)
}

// Schema describes the menu file format as JSON Schema.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&MenuSet{})
	schema.Title = "ema-ivr menus"
	return schema
}
