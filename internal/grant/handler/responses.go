package handler

import (
	"time"

	"idadmin/internal/grant/models"
)

type grantResponse struct {
	Key          string     `json:"key"`
	SubjectID    string     `json:"subjectId"`
	Type         string     `json:"type"`
	ClientID     string     `json:"clientId"`
	CreationTime time.Time  `json:"creationTime"`
	Expiration   *time.Time `json:"expiration,omitempty"`
	Data         string     `json:"data"`
}

type subjectGrantsResponse struct {
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName,omitempty"`
	GrantCount  int    `json:"grantCount"`
}

type subjectsPageResponse struct {
	SearchTerm string                  `json:"searchTerm,omitempty"`
	Subjects   []subjectGrantsResponse `json:"subjects"`
	TotalCount int                     `json:"totalCount"`
	PageSize   int                     `json:"pageSize"`
}

type grantsPageResponse struct {
	SubjectID  string          `json:"subjectId"`
	Grants     []grantResponse `json:"grants"`
	TotalCount int             `json:"totalCount"`
	PageSize   int             `json:"pageSize"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

func formatGrant(g models.Grant) grantResponse {
	return grantResponse{
		Key:          g.Key,
		SubjectID:    g.SubjectID,
		Type:         g.Type,
		ClientID:     g.ClientID,
		CreationTime: g.CreationTime,
		Expiration:   g.Expiration,
		Data:         g.Data,
	}
}

func formatSubjectsPage(page *models.SubjectsPage) subjectsPageResponse {
	subjects := make([]subjectGrantsResponse, 0, len(page.Subjects.Items))
	for _, row := range page.Subjects.Items {
		subjects = append(subjects, subjectGrantsResponse{
			SubjectID:   row.SubjectID,
			SubjectName: row.SubjectName,
			GrantCount:  row.GrantCount,
		})
	}
	return subjectsPageResponse{
		SearchTerm: page.SearchTerm,
		Subjects:   subjects,
		TotalCount: page.Subjects.TotalCount,
		PageSize:   page.Subjects.PageSize,
	}
}

func formatGrantsPage(page *models.GrantsPage) grantsPageResponse {
	grants := make([]grantResponse, 0, len(page.Grants.Items))
	for _, g := range page.Grants.Items {
		grants = append(grants, formatGrant(g))
	}
	return grantsPageResponse{
		SubjectID:  page.SubjectID,
		Grants:     grants,
		TotalCount: page.Grants.TotalCount,
		PageSize:   page.Grants.PageSize,
	}
}
