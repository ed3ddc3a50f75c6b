package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

var errEmptyID = errors.New("student id is required")

func studentPath(id string) string {
	return "/student/" + url.PathEscape(id)
}

// decoded returns nil when the API answered without a student body.
func decoded(s *enrollment.Student) *enrollment.Student {
	if s.ID == "" {
		return nil
	}
	return s
}

// CreateStudent submits a new enrollment. The endpoint is public.
func (c *Client) CreateStudent(ctx context.Context, p Payload) (*enrollment.Student, error) {
	var out enrollment.Student
	err := c.do(ctx, request{method: http.MethodPost, route: "/student", path: "/student", body: p}, &out)
	if err != nil {
		logRequestError(ctx, "create student failed", err, "multipart", p.Multipart())
		return nil, err
	}
	return decoded(&out), nil
}

// ListStudents returns every student in API order.
func (c *Client) ListStudents(ctx context.Context) ([]enrollment.Student, error) {
	var out []enrollment.Student
	err := c.do(ctx, request{method: http.MethodGet, route: "/student", path: "/student"}, &out)
	if err != nil {
		logRequestError(ctx, "list students failed", err)
		return nil, err
	}
	return out, nil
}

// GetStudent fetches one student.
func (c *Client) GetStudent(ctx context.Context, id string) (*enrollment.Student, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var out enrollment.Student
	err := c.do(ctx, request{method: http.MethodGet, route: "/student/{id}", path: studentPath(id)}, &out)
	if err != nil {
		logRequestError(ctx, "get student failed", err, "student_id", id)
		return nil, err
	}
	return &out, nil
}

// UpdateStudent patches a student with a JSON or multipart body. The result
// is nil when the API answers without a body.
func (c *Client) UpdateStudent(ctx context.Context, id string, p Payload) (*enrollment.Student, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var out enrollment.Student
	err := c.do(ctx, request{method: http.MethodPatch, route: "/student/{id}", path: studentPath(id), body: p}, &out)
	if err != nil {
		logRequestError(ctx, "update student failed", err, "student_id", id, "multipart", p.Multipart())
		return nil, err
	}
	return decoded(&out), nil
}

// DeleteStudent removes a student.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	err := c.do(ctx, request{method: http.MethodDelete, route: "/student/{id}", path: studentPath(id)}, nil)
	if err != nil {
		logRequestError(ctx, "delete student failed", err, "student_id", id)
		return err
	}
	return nil
}

// ApproveStudent marks a student approved and returns the updated record.
func (c *Client) ApproveStudent(ctx context.Context, id string) (*enrollment.Student, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var out enrollment.Student
	err := c.do(ctx, request{method: http.MethodPatch, route: "/student/{id}/approve", path: studentPath(id) + "/approve"}, &out)
	if err != nil {
		logRequestError(ctx, "approve student failed", err, "student_id", id)
		return nil, fmt.Errorf("approve student %s: %w", id, err)
	}
	return decoded(&out), nil
}
