package domain

import (
	"fmt"
	"strings"
	"time"
)

const dueDateLayout = "2006-01-02"

// Attempt order is a behavioral contract: for ambiguous strings such as
// "03-10-2025" the first layout that parses wins. Do not reorder.
var issueDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// DueDateResult is the outcome of one due-date computation. On failure every
// date/boolean/integer field is nil and Error carries the description.
type DueDateResult struct {
	IssueDate     *string `json:"issue_date"`
	DueDate       *string `json:"due_date"`
	IsOverdue     *bool   `json:"is_overdue"`
	DaysRemaining *int    `json:"days_remaining"`
	Message       string  `json:"message"`
	Error         *string `json:"error"`
}

// ComputeDueDate resolves an invoice due date from its issue date and credit
// term, evaluated against now. Calendar-day arithmetic, no business-day
// skipping; a due date of today counts as not yet overdue. All failures are
// reported through the result's Error field, never as a returned error, so
// the agent loop can surface them as tool output.
func ComputeDueDate(issueDateText string, creditDays int, now time.Time) DueDateResult {
	raw := strings.TrimSpace(issueDateText)

	var issued time.Time
	parsed := false
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			issued = t
			parsed = true
			break
		}
	}
	if !parsed {
		return dueDateFailure(fmt.Sprintf(
			"cannot parse date %q: expected one of YYYY-MM-DD, DD-MM-YYYY, DD/MM/YYYY, YYYY/MM/DD", raw))
	}

	due := issued.AddDate(0, 0, creditDays)
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	daysRemaining := int(due.Sub(today).Hours() / 24)
	overdue := daysRemaining < 0

	message := fmt.Sprintf("%d days remaining", daysRemaining)
	if overdue {
		message = fmt.Sprintf("overdue by %d days", -daysRemaining)
	}

	issueOut := issued.Format(dueDateLayout)
	dueOut := due.Format(dueDateLayout)
	return DueDateResult{
		IssueDate:     &issueOut,
		DueDate:       &dueOut,
		IsOverdue:     &overdue,
		DaysRemaining: &daysRemaining,
		Message:       message,
	}
}

func dueDateFailure(description string) DueDateResult {
	return DueDateResult{
		Message: description,
		Error:   &description,
	}
}
