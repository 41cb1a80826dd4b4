package attribute

// TableColumn describes one column of a table-typed attribute. A value
// stored for a table attribute is an ordered list of rows, each row an
// ordered list of cells aligned positionally to the column list.
type TableColumn struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "text", "number", "date", "select"
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"` // for select columns
	Width    int      `json:"width,omitempty"`
}

// Rules carries the validation constraints for an attribute. Only the
// fields relevant to the attribute's type are meaningful; ForeignFields
// reports the ones that are set but do not belong. Booleans that default
// to true (row permissions, AllowEmpty variants) are pointers so an
// authored definition round-trips without field loss.
type Rules struct {
	// Text-like
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Number
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	IsInteger  bool     `json:"isInteger,omitempty"`
	IsPositive bool     `json:"isPositive,omitempty"`
	IsNegative bool     `json:"isNegative,omitempty"`
	IsZero     bool     `json:"isZero,omitempty"`

	// Date (ISO 8601 date strings)
	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`

	// Select / multiselect
	MinSelections *int `json:"minSelections,omitempty"`
	MaxSelections *int `json:"maxSelections,omitempty"`

	// Array
	MinItems    *int   `json:"minItems,omitempty"`
	MaxItems    *int   `json:"maxItems,omitempty"`
	UniqueItems bool   `json:"uniqueItems,omitempty"`
	ItemType    string `json:"itemType,omitempty"`
	AllowEmpty  *bool  `json:"allowEmpty,omitempty"`

	// Object
	RequiredProperties []string `json:"requiredProperties,omitempty"`
	JSONSchema         string   `json:"jsonSchema,omitempty"`
	StrictMode         bool     `json:"strictMode,omitempty"`
	AllowEmptyObject   *bool    `json:"allowEmptyObject,omitempty"`

	// Table
	Columns         []TableColumn `json:"columns,omitempty"`
	MinRows         *int          `json:"minRows,omitempty"`
	MaxRows         *int          `json:"maxRows,omitempty"`
	AllowAddRows    *bool         `json:"allowAddRows,omitempty"`
	AllowDeleteRows *bool         `json:"allowDeleteRows,omitempty"`
	AllowEditRows   *bool         `json:"allowEditRows,omitempty"`

	// Formula
	Variables          []string `json:"variables,omitempty"`
	Functions          []string `json:"functions,omitempty"`
	DefaultFormula     string   `json:"defaultFormula,omitempty"`
	RequireValidSyntax bool     `json:"requireValidSyntax,omitempty"`
	AllowEmptyFormula  *bool    `json:"allowEmptyFormula,omitempty"`
}

// boolOr resolves a tri-state permission pointer to its default.
func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// AddRowsAllowed reports whether rows may be appended (default true).
func (r Rules) AddRowsAllowed() bool { return boolOr(r.AllowAddRows, true) }

// DeleteRowsAllowed reports whether rows may be removed (default true).
func (r Rules) DeleteRowsAllowed() bool { return boolOr(r.AllowDeleteRows, true) }

// EditRowsAllowed reports whether cells may be edited (default true).
func (r Rules) EditRowsAllowed() bool { return boolOr(r.AllowEditRows, true) }

// EmptyAllowed reports whether an array value may be empty (default true).
func (r Rules) EmptyAllowed() bool { return boolOr(r.AllowEmpty, true) }

// EmptyObjectAllowed reports whether an object value may be empty (default true).
func (r Rules) EmptyObjectAllowed() bool { return boolOr(r.AllowEmptyObject, true) }

// EmptyFormulaAllowed reports whether a formula value may be empty (default true).
func (r Rules) EmptyFormulaAllowed() bool { return boolOr(r.AllowEmptyFormula, true) }

// ruleField names one rule field and the type families it belongs to.
type ruleField struct {
	name  string
	set   func(Rules) bool
	types []Type
}

var textLike = []Type{
	TypeText, TypeTextarea, TypeEmail, TypeURL, TypePassword,
	TypePhone, TypeRichText, TypeReadonly, TypeColor,
	TypeFile, TypeImage, TypeAttachment,
}

var numberLike = []Type{TypeNumber, TypeInteger, TypeDecimal, TypeRating}

var dateLike = []Type{TypeDate, TypeDatetime}

var selectLike = []Type{TypeSelect, TypeMultiselect}

var formulaLike = []Type{TypeFormula}

// ruleFields is the ownership table: which rule fields belong to which
// attribute types. Built once; consulted by ForeignFields and the rule
// editors.
var ruleFields = []ruleField{
	{"minLength", func(r Rules) bool { return r.MinLength != nil }, textLike},
	{"maxLength", func(r Rules) bool { return r.MaxLength != nil }, textLike},
	{"pattern", func(r Rules) bool { return r.Pattern != "" }, textLike},

	{"min", func(r Rules) bool { return r.Min != nil }, numberLike},
	{"max", func(r Rules) bool { return r.Max != nil }, numberLike},
	{"isInteger", func(r Rules) bool { return r.IsInteger }, numberLike},
	{"isPositive", func(r Rules) bool { return r.IsPositive }, numberLike},
	{"isNegative", func(r Rules) bool { return r.IsNegative }, numberLike},
	{"isZero", func(r Rules) bool { return r.IsZero }, numberLike},

	{"minDate", func(r Rules) bool { return r.MinDate != "" }, dateLike},
	{"maxDate", func(r Rules) bool { return r.MaxDate != "" }, dateLike},

	{"minSelections", func(r Rules) bool { return r.MinSelections != nil }, selectLike},
	{"maxSelections", func(r Rules) bool { return r.MaxSelections != nil }, selectLike},

	{"minItems", func(r Rules) bool { return r.MinItems != nil }, []Type{TypeArray}},
	{"maxItems", func(r Rules) bool { return r.MaxItems != nil }, []Type{TypeArray}},
	{"uniqueItems", func(r Rules) bool { return r.UniqueItems }, []Type{TypeArray}},
	{"itemType", func(r Rules) bool { return r.ItemType != "" }, []Type{TypeArray}},
	{"allowEmpty", func(r Rules) bool { return r.AllowEmpty != nil }, []Type{TypeArray}},

	{"requiredProperties", func(r Rules) bool { return len(r.RequiredProperties) > 0 }, []Type{TypeObject}},
	{"jsonSchema", func(r Rules) bool { return r.JSONSchema != "" }, []Type{TypeObject}},
	{"strictMode", func(r Rules) bool { return r.StrictMode }, []Type{TypeObject}},
	{"allowEmptyObject", func(r Rules) bool { return r.AllowEmptyObject != nil }, []Type{TypeObject}},

	{"columns", func(r Rules) bool { return len(r.Columns) > 0 }, []Type{TypeTable}},
	{"minRows", func(r Rules) bool { return r.MinRows != nil }, []Type{TypeTable}},
	{"maxRows", func(r Rules) bool { return r.MaxRows != nil }, []Type{TypeTable}},
	{"allowAddRows", func(r Rules) bool { return r.AllowAddRows != nil }, []Type{TypeTable}},
	{"allowDeleteRows", func(r Rules) bool { return r.AllowDeleteRows != nil }, []Type{TypeTable}},
	{"allowEditRows", func(r Rules) bool { return r.AllowEditRows != nil }, []Type{TypeTable}},

	{"variables", func(r Rules) bool { return len(r.Variables) > 0 }, formulaLike},
	{"functions", func(r Rules) bool { return len(r.Functions) > 0 }, formulaLike},
	{"defaultFormula", func(r Rules) bool { return r.DefaultFormula != "" }, formulaLike},
	{"requireValidSyntax", func(r Rules) bool { return r.RequireValidSyntax }, formulaLike},
	{"allowEmptyFormula", func(r Rules) bool { return r.AllowEmptyFormula != nil }, formulaLike},
}

func fieldBelongsTo(f ruleField, t Type) bool {
	for _, ft := range f.types {
		if ft == t {
			return true
		}
	}
	return false
}

// RuleFieldsFor lists the rule field names that apply to a type, in
// ownership-table order. Empty for types without bespoke rules (boolean,
// time, json, expression, barcode, qr).
func RuleFieldsFor(t Type) []string {
	var names []string
	for _, f := range ruleFields {
		if fieldBelongsTo(f, t) {
			names = append(names, f.name)
		}
	}
	return names
}

// ForeignFields returns the names of rule fields that are set on r but do
// not belong to attribute type t. A text attribute carrying minRows is an
// authoring error surfaced through this check.
func (r Rules) ForeignFields(t Type) []string {
	var foreign []string
	for _, f := range ruleFields {
		if f.set(r) && !fieldBelongsTo(f, t) {
			foreign = append(foreign, f.name)
		}
	}
	return foreign
}
