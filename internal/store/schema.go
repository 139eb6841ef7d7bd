package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	proficiencyTable = "proficiency"
	tierChangeTable  = "tier_change"
)

var (
	proficiencyColumns = []*schema.Column{
		{Name: "pkey", Type: field.TypeString, Unique: true},
		{Name: "student_id", Type: field.TypeString},
		{Name: "level", Type: field.TypeString},
		{Name: "identifier", Type: field.TypeString},
		{Name: "alpha", Type: field.TypeFloat64},
		{Name: "beta", Type: field.TypeFloat64},
		{Name: "mean_ability", Type: field.TypeFloat64},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "sample_count", Type: field.TypeInt},
		{Name: "last_updated", Type: field.TypeInt64, Comment: "unix nanoseconds, 0 when never updated"},
		{Name: "tier", Type: field.TypeString, Default: ""},
		{Name: "version", Type: field.TypeInt64},
		{Name: "parent", Type: field.TypeString, Default: "", Comment: "identifier one level up"},
		{Name: "children", Type: field.TypeString, Default: "", Comment: "JSON array of linked child identifiers"},
	}
	proficiencySchema = &schema.Table{
		Name:       proficiencyTable,
		Columns:    proficiencyColumns,
		PrimaryKey: []*schema.Column{proficiencyColumns[0]},
		Indexes: []*schema.Index{
			{Name: "proficiency_student_id", Columns: []*schema.Column{proficiencyColumns[1]}},
			{Name: "proficiency_student_level_identifier", Unique: true, Columns: []*schema.Column{proficiencyColumns[1], proficiencyColumns[2], proficiencyColumns[3]}},
		},
	}

	tierChangeColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "student_id", Type: field.TypeString},
		{Name: "level", Type: field.TypeString},
		{Name: "identifier", Type: field.TypeString},
		{Name: "from_tier", Type: field.TypeString},
		{Name: "to_tier", Type: field.TypeString},
		{Name: "rule", Type: field.TypeString},
		{Name: "mean_ability", Type: field.TypeFloat64},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "timestamp", Type: field.TypeInt64},
	}
	tierChangeSchema = &schema.Table{
		Name:       tierChangeTable,
		Columns:    tierChangeColumns,
		PrimaryKey: []*schema.Column{tierChangeColumns[0]},
		Indexes: []*schema.Index{
			{Name: "tier_change_student_id_sequence", Columns: []*schema.Column{tierChangeColumns[2], tierChangeColumns[1]}},
		},
	}

	// tables lists every table the SQLite store migrates.
	tables = []*schema.Table{proficiencySchema, tierChangeSchema}

	recordColumns = []string{
		"pkey", "student_id", "level", "identifier",
		"alpha", "beta", "mean_ability", "confidence",
		"sample_count", "last_updated", "tier", "version",
		"parent", "children",
	}
)
