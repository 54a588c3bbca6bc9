package model

import (
	"time"

	"github.com/AlexZinkM/exam-admin/internal/common"
)

// PaperSubmission is the operator's exam paper form for one session.
type PaperSubmission struct {
	PaperID               string  `json:"paperId"`
	ExamDate              string  `json:"examDate,omitempty"`
	ExamTime              string  `json:"examTime,omitempty"`
	ExamStartEpochSeconds *int64  `json:"examStartEpochSeconds,omitempty"`
	ContentReference      *string `json:"contentReference,omitempty"`
}

// PaperForm represents request for PUT /sessions/{id}/paper
type PaperForm struct {
	PaperID  string `json:"paperId"`
	ExamDate string `json:"examDate"`
	ExamTime string `json:"examTime"`
}

// Apply copies the form into the submission. The start time is set only once both
// date and time are present; it is cleared otherwise.
func (p *PaperSubmission) Apply(form PaperForm, loc *time.Location) error {
	p.PaperID = form.PaperID
	p.ExamDate = form.ExamDate
	p.ExamTime = form.ExamTime
	p.ExamStartEpochSeconds = nil

	if form.ExamDate == "" || form.ExamTime == "" {
		return nil
	}
	start, err := common.ExamStartEpoch(form.ExamDate, form.ExamTime, loc)
	if err != nil {
		return err
	}
	p.ExamStartEpochSeconds = &start
	return nil
}

// SetContentReference records the content identifier of an uploaded paper.
func (p *PaperSubmission) SetContentReference(cid string) {
	p.ContentReference = &cid
}
