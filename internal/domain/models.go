package domain

import "time"

// Survey field names. The order here is the presentation order carried
// into every aggregate view.

// RatingFields are the nine 1-5 star survey questions.
var RatingFields = []string{
	"overall_exp",
	"doc_care",
	"doc_comm",
	"nurse_care",
	"food_quality",
	"accommodation",
	"sanitization",
	"safety",
	"staff_support",
}

// BinaryFields are the five yes/no survey questions.
var BinaryFields = []string{
	"doc_involvement",
	"nurse_promptness",
	"cleanliness",
	"timely_info",
	"med_info",
}

const (
	// RatingMin and RatingMax bound a valid star rating.
	RatingMin = 1
	RatingMax = 5

	// BinaryYes and BinaryNo are the only counted binary answers;
	// anything else is excluded from aggregates.
	BinaryYes = "yes"
	BinaryNo  = "no"
)

// FeedbackRecord is one patient's survey response. PatientID is the
// natural key; the store enforces its uniqueness.
type FeedbackRecord struct {
	PatientID int    `bson:"patient_id" json:"patient_id"`
	Name      string `bson:"name" json:"name"`
	Age       int    `bson:"age" json:"age"` // domain range 0-120, not enforced at intake
	Email     string `bson:"email" json:"email"`
	Date      string `bson:"date" json:"date"` // ISO-8601 date recommended

	OverallExp    int `bson:"overall_exp" json:"overall_exp"`
	DocCare       int `bson:"doc_care" json:"doc_care"`
	DocComm       int `bson:"doc_comm" json:"doc_comm"`
	NurseCare     int `bson:"nurse_care" json:"nurse_care"`
	FoodQuality   int `bson:"food_quality" json:"food_quality"`
	Accommodation int `bson:"accommodation" json:"accommodation"`
	Sanitization  int `bson:"sanitization" json:"sanitization"`
	Safety        int `bson:"safety" json:"safety"`
	StaffSupport  int `bson:"staff_support" json:"staff_support"`

	DocInvolvement  string `bson:"doc_involvement" json:"doc_involvement"`
	NursePromptness string `bson:"nurse_promptness" json:"nurse_promptness"`
	Cleanliness     string `bson:"cleanliness" json:"cleanliness"`
	TimelyInfo      string `bson:"timely_info" json:"timely_info"`
	MedInfo         string `bson:"med_info" json:"med_info"`

	OtherComments string `bson:"other_comments" json:"other_comments"`
}

// Rating returns the value of the named rating field. ok is false when
// the field name is not a rating field.
func (r *FeedbackRecord) Rating(field string) (int, bool) {
	switch field {
	case "overall_exp":
		return r.OverallExp, true
	case "doc_care":
		return r.DocCare, true
	case "doc_comm":
		return r.DocComm, true
	case "nurse_care":
		return r.NurseCare, true
	case "food_quality":
		return r.FoodQuality, true
	case "accommodation":
		return r.Accommodation, true
	case "sanitization":
		return r.Sanitization, true
	case "safety":
		return r.Safety, true
	case "staff_support":
		return r.StaffSupport, true
	}
	return 0, false
}

// Binary returns the value of the named yes/no field. ok is false when
// the field name is not a binary field.
func (r *FeedbackRecord) Binary(field string) (string, bool) {
	switch field {
	case "doc_involvement":
		return r.DocInvolvement, true
	case "nurse_promptness":
		return r.NursePromptness, true
	case "cleanliness":
		return r.Cleanliness, true
	case "timely_info":
		return r.TimelyInfo, true
	case "med_info":
		return r.MedInfo, true
	}
	return "", false
}

// Field returns the value of any survey field by its wire name.
// Used by the in-memory store to evaluate filters.
func (r *FeedbackRecord) Field(name string) (interface{}, bool) {
	switch name {
	case "patient_id":
		return r.PatientID, true
	case "name":
		return r.Name, true
	case "age":
		return r.Age, true
	case "email":
		return r.Email, true
	case "date":
		return r.Date, true
	case "other_comments":
		return r.OtherComments, true
	}
	if v, ok := r.Rating(name); ok {
		return v, true
	}
	if v, ok := r.Binary(name); ok {
		return v, true
	}
	return nil, false
}

// SessionData marks a completed submission within one client session.
type SessionData struct {
	PatientID int       `json:"patient_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// ChartKind selects the visual form the external renderer produces.
type ChartKind string

const (
	ChartBar ChartKind = "bar"
	ChartPie ChartKind = "pie"
)

// Point is one labeled count in a chart series.
type Point struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Series is a named, ordered list of points handed to the renderer.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}
