package schema

// Raw identifiers of the CTE record table.
const (
	RawYear            = "year"
	RawCounty          = "county"
	RawUniqueClusters  = "unique_career_clusters_y"
	ProjectionCategory = "Industry Title"
)

// Display names the analysis view reads after renaming.
const (
	Year           = "Year"
	County         = "County"
	UniqueClusters = "Unique Career Clusters in County"
)

// Year columns every projections workbook must carry.
var ProjectionYears = []string{"2021", "2030"}

var cteMapping = MustMapping(map[string]string{
	"year":                     "Year",
	"agency_prefix":            "Agency Prefix",
	"stu_enroll":               "Student Enrollment",
	"cte_enroll":               "CTE Course Enrollment",
	"county":                   "County",
	"district_code":            "District Code",
	"sum_cluster_in_county":    "Sum of Career Clusters in County",
	"sum_cluster_in_state":     "Sum of Career Clusters in State",
	"unique_career_clusters_y": "Unique Career Clusters in County",
	"total_concentrators":      "Total Concentrators in CTE Pathway",
})

// CTEMapping returns the fixed dictionary for the CTE record table.
func CTEMapping() Mapping { return cteMapping }

// CTEContract describes the renamed CTE record table.
func CTEContract() Contract {
	return Contract{
		Name: "cte_records",
		Fields: []FieldSpec{
			{Name: "Year", Type: TypeNumeric},
			{Name: "Agency Prefix", Type: TypeAny},
			{Name: "Student Enrollment", Type: TypeNumeric},
			{Name: "CTE Course Enrollment", Type: TypeNumeric},
			{Name: "County", Type: TypeText, Required: true},
			{Name: "District Code", Type: TypeAny},
			{Name: "Sum of Career Clusters in County", Type: TypeNumeric},
			{Name: "Sum of Career Clusters in State", Type: TypeNumeric},
			{Name: "Unique Career Clusters in County", Type: TypeNumeric, Required: true},
			{Name: "Total Concentrators in CTE Pathway", Type: TypeNumeric},
		},
	}
}

// ProjectionsContract describes the employment projections workbook.
func ProjectionsContract() Contract {
	fields := []FieldSpec{{Name: ProjectionCategory, Type: TypeText, Required: true}}
	for _, y := range ProjectionYears {
		fields = append(fields, FieldSpec{Name: y, Type: TypeNumeric, Required: true})
	}
	return Contract{Name: "employment_projections", Fields: fields}
}
