package views

import "github.com/JonMunkholm/matricula/internal/enrollment"

// StudentForm describes one rendering of the enrollment form. The same markup
// serves the public page and the admin create and edit pages.
type StudentForm struct {
	Action      string
	Heading     string
	Description string
	Record      enrollment.Record
	Errors      map[enrollment.FieldName]string
	Policy      enrollment.DocumentPolicy
	// Edit shows the approval toggle and makes the document optional.
	Edit        bool
	SubmitLabel string
	// ResetAction, when set, adds a button that clears the form server-side.
	ResetAction  string
	CancelHref   string
	DocumentHref string
}

func (f StudentForm) err(name enrollment.FieldName) string {
	return f.Errors[name]
}

func (f StudentForm) invalid(name enrollment.FieldName) bool {
	return f.Errors[name] != ""
}

func (f StudentForm) text(name enrollment.FieldName) string {
	v, _ := f.Record.Text(name)
	return v
}
