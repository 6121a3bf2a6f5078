package models

type GenrePriceStat struct {
	Genre        string  `json:"genre" bson:"_id"`
	AveragePrice float64 `json:"averagePrice" bson:"averagePrice"`
	Count        int     `json:"count" bson:"count"`
}

type AuthorBookCount struct {
	Author     string `json:"author" bson:"_id"`
	TotalBooks int    `json:"totalBooks" bson:"totalBooks"`
}

// DecadeCount is keyed by labels such as "1960s".
type DecadeCount struct {
	Decade string `json:"decade" bson:"_id"`
	Count  int    `json:"count" bson:"count"`
}

type ExplainSummary struct {
	Namespace           string   `json:"namespace" bson:"namespace"`
	Stages              []string `json:"stages" bson:"stages"`
	IndexName           string   `json:"index_name,omitempty" bson:"index_name,omitempty"`
	NReturned           int64    `json:"nReturned" bson:"nReturned"`
	TotalKeysExamined   int64    `json:"totalKeysExamined" bson:"totalKeysExamined"`
	TotalDocsExamined   int64    `json:"totalDocsExamined" bson:"totalDocsExamined"`
	ExecutionTimeMillis int64    `json:"executionTimeMillis" bson:"executionTimeMillis"`
}

// UsesIndex reports whether the winning plan scanned an index.
func (e ExplainSummary) UsesIndex() bool {
	return e.IndexName != ""
}

type Metrics struct {
	TotalBooks   int64 `json:"total_books"`
	InStock      int64 `json:"in_stock"`
	OutOfStock   int64 `json:"out_of_stock"`
	Genres       int   `json:"genres"`
	AuditEntries int64 `json:"audit_entries"`
}
