// Package policy holds the access decisions of the notice board. Every
// function is pure; callers turn a false result into a Forbidden response.
package policy

import "github.com/noah-isme/noticeboard-api/internal/models"

func authenticated(viewer models.Viewer) bool {
	return viewer.ID > 0 && viewer.Role.Valid()
}

func isStaff(viewer models.Viewer) bool {
	return viewer.Role == models.RoleAdmin || viewer.Role == models.RoleTeacher
}

// CanViewAttachment reports whether viewer may download files of notice.
// Staff see everything; students only approved notices for their department or "all".
func CanViewAttachment(viewer models.Viewer, notice models.Notice) bool {
	if !authenticated(viewer) {
		return false
	}
	if isStaff(viewer) {
		return true
	}
	if notice.Status != models.NoticeStatusApproved {
		return false
	}
	return notice.Department == models.DepartmentAll || notice.Department == viewer.Department
}

// CanViewNotice applies the attachment rule to the notice itself, with the
// addition that authors always see their own notices.
func CanViewNotice(viewer models.Viewer, notice models.Notice) bool {
	if authenticated(viewer) && notice.AuthorID == viewer.ID {
		return true
	}
	return CanViewAttachment(viewer, notice)
}

// CanReadFeedback reports whether viewer may read or join the comment thread
// of notice. Department does not matter; unpublished notices stay limited to
// staff and their author.
func CanReadFeedback(viewer models.Viewer, notice models.Notice) bool {
	if !authenticated(viewer) {
		return false
	}
	return isStaff(viewer) || notice.Status == models.NoticeStatusApproved || notice.AuthorID == viewer.ID
}

// CanModerate reports whether viewer may approve or reject notices.
func CanModerate(viewer models.Viewer) bool {
	return authenticated(viewer) && viewer.Role == models.RoleAdmin
}

// CanAuthor reports whether viewer may create notices.
func CanAuthor(viewer models.Viewer) bool {
	return authenticated(viewer) && isStaff(viewer)
}

// CanMutateNotice reports whether viewer may edit or delete notice.
func CanMutateNotice(viewer models.Viewer, notice models.Notice) bool {
	if !authenticated(viewer) {
		return false
	}
	return viewer.Role == models.RoleAdmin || viewer.ID == notice.AuthorID
}

// CanDeleteFeedback reports whether viewer may remove the feedback entry.
func CanDeleteFeedback(viewer models.Viewer, feedback models.Feedback) bool {
	if !authenticated(viewer) {
		return false
	}
	return isStaff(viewer) || viewer.ID == feedback.UserID
}

// CanRequestScope reports whether viewer may list notices under scope.
func CanRequestScope(viewer models.Viewer, scope models.NoticeScope) bool {
	if !authenticated(viewer) {
		return false
	}
	switch scope {
	case models.NoticeScopePublic, models.NoticeScopeMine, "":
		return true
	case models.NoticeScopeModeration:
		return viewer.Role == models.RoleAdmin
	}
	return false
}
