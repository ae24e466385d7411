package models

import "time"

// ReferenceRecord is one graded row of the reference population. Only
// QuestionType and Accuracy are required; the other columns are kept when the
// source provides them.
type ReferenceRecord struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	StudentID           string          `json:"student_id" gorm:"size:64;index"`
	StudentName         string          `json:"student_name" gorm:"size:255"`
	QuestionID          int             `json:"question_id"`
	QuestionType        QuestionType    `json:"question_type" gorm:"not null;size:64;index"`
	TimeSpent           float64         `json:"time_spent"`
	Accuracy            float64         `json:"accuracy" gorm:"not null"`
	PerformanceCategory MasteryCategory `json:"performance_category,omitempty" gorm:"size:32"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (ReferenceRecord) TableName() string {
	return "reference_records"
}

// ReferenceRecordFromItem converts a student's graded item into a row of the
// combined dataset.
func ReferenceRecordFromItem(item GradedItem) ReferenceRecord {
	return ReferenceRecord{
		StudentID:           item.StudentID,
		StudentName:         item.StudentName,
		QuestionID:          item.QuestionID,
		QuestionType:        item.QuestionType,
		TimeSpent:           item.TimeSpent,
		Accuracy:            float64(item.Accuracy),
		PerformanceCategory: item.Category,
	}
}
