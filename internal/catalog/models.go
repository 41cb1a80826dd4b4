package catalog

import "time"

// JSON-valued columns are stored as serialized TEXT. SQLite has no native
// JSON column type and the catalogue never queries inside these blobs.

type DefinitionModel struct {
	Code        string `gorm:"primaryKey"`
	Type        string `gorm:"not null"`
	IsRequired  bool   `gorm:"not null;default:false"`
	Name        string `gorm:"not null;default:'{}'"`
	Description string `gorm:"not null;default:'{}'"`
	Options     string `gorm:"not null;default:'[]'"`
	Rules       string `gorm:"not null;default:'{}'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DefinitionModel) TableName() string { return "attribute_definitions" }

type RuleModel struct {
	Code               string `gorm:"primaryKey"`
	SourceItemTypeCode string `gorm:"not null;index"`
	TargetItemTypeCode string `gorm:"not null;index"`
	Kind               string `gorm:"not null"`
	CardinalityMin     *int
	CardinalityMax     *int
	IsRequired         bool   `gorm:"not null;default:false"`
	DisplayField       string `gorm:"not null;default:''"`
	SearchableFields   string `gorm:"not null;default:'[]'"`
	FilterBy           string `gorm:"not null;default:'{}'"`
	UIConfig           string `gorm:"not null;default:'{}'"`
	CascadeDelete      bool   `gorm:"not null;default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (RuleModel) TableName() string { return "association_rules" }

type RelationshipTypeModel struct {
	Code               string `gorm:"primaryKey"`
	Name               string `gorm:"not null"`
	IsDirectional      bool   `gorm:"not null;default:false"`
	AllowedSourceTypes string `gorm:"not null;default:'[]'"`
	AllowedTargetTypes string `gorm:"not null;default:'[]'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (RelationshipTypeModel) TableName() string { return "relationship_types" }

type RelationshipModel struct {
	ID               string `gorm:"primaryKey"`
	AssociationID    string `gorm:"not null;index"`
	SourceEntityID   string `gorm:"not null;index"`
	SourceEntityType string `gorm:"not null"`
	TargetEntityID   string `gorm:"not null;index"`
	TargetEntityType string `gorm:"not null"`
	Status           string `gorm:"not null;default:'pending'"`
	Priority         int    `gorm:"not null;default:0"`
	Attributes       string `gorm:"not null;default:'{}'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (RelationshipModel) TableName() string { return "relationships" }

type EntityModel struct {
	ID        string `gorm:"primaryKey"`
	TypeCode  string `gorm:"not null;index"`
	Labels    string `gorm:"not null;default:'{}'"`
	Fields    string `gorm:"not null;default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EntityModel) TableName() string { return "entities" }
