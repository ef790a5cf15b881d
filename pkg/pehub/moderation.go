package pehub

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/objectkey"
)

// approvalNamespace seeds the content id derived from a request id, so a
// request can only ever materialize one content item.
var approvalNamespace = uuid.MustParse("6f1c7b0e-8d1a-4c55-9a55-3c7a1f0e2b91")

// ApprovedContentID returns the id of the content item created when the
// request is approved.
func ApprovedContentID(requestID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(approvalNamespace, requestID[:])
}

// SubmitContentRequest records a pending proposal from a signed-in user and
// notifies the admin.
func (s *service) SubmitContentRequest(ctx context.Context, actor Actor, req SubmitContentRequest) (*ContentRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	req.Title = SanitizeText(req.Title)
	req.Description = SanitizeText(req.Description)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validatePlacement(req.StageID, req.CategoryID); err != nil {
		return nil, err
	}
	if req.File == nil && req.URL == "" {
		return nil, newValidationError(FieldError{Field: "url", Message: i18n.UploadNeedsSource})
	}

	adminID, err := s.adminRecipient(ctx)
	if err != nil {
		s.logger.Error("no admin to receive content request", "error", err)
		return nil, &TransientError{Op: "submit content request", Notice: i18n.RequestSubmitError, Err: err}
	}

	url := req.URL
	if req.File != nil {
		key := s.requestKeys.GenerateKey(&objectkey.KeyMetadata{FileName: req.File.Name, Time: s.now()})
		if url, err = s.uploadFile(ctx, key, req.File); err != nil {
			return nil, &TransientError{Op: "submit content request", Notice: i18n.RequestSubmitError, Err: err}
		}
	}

	cr := &ContentRequest{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		URL:         url,
		Type:        req.Type,
		StageID:     req.StageID,
		CategoryID:  req.CategoryID,
		Status:      RequestStatusPending,
		UserID:      actor.UserID,
		AdminID:     &adminID,
		CreatedAt:   s.timestamp(),
	}
	if err := s.repository.CreateContentRequest(ctx, cr); err != nil {
		return nil, &RequestError{RequestID: cr.ID, Op: "create", Err: err}
	}
	s.logger.Info("content request submitted", "request_id", cr.ID, "user_id", actor.UserID, "type", cr.Type)
	s.publish(ctx, TableContentRequests, EventInsert, cr)

	s.notify(ctx, adminID,
		s.t(i18n.NewRequestTitle),
		i18n.NewRequestMessage(s.lang, cr.Type, cr.Title),
		NotificationTypeContentRequest,
		map[string]string{"request_id": cr.ID.String()})

	return cr, nil
}

// ListContentRequests returns requests newest first with the submitter's
// profile resolved. An empty status lists every request.
func (s *service) ListContentRequests(ctx context.Context, actor Actor, status RequestStatus) ([]*ContentRequestView, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	reqs, err := s.repository.ListContentRequests(ctx, RequestFilter{Status: status})
	if err != nil {
		return nil, &TransientError{Op: "list content requests", Notice: i18n.RequestsFetchError, Err: err}
	}

	profiles := make(map[uuid.UUID]*Profile)
	views := make([]*ContentRequestView, 0, len(reqs))
	for _, r := range reqs {
		view := &ContentRequestView{ContentRequest: *r}
		p, seen := profiles[r.UserID]
		if !seen {
			p, err = s.repository.GetProfile(ctx, r.UserID)
			if err != nil && !errors.Is(err, ErrProfileNotFound) {
				s.logger.Warn("failed to load submitter profile", "user_id", r.UserID, "error", err)
			}
			profiles[r.UserID] = p
		}
		if p != nil {
			view.SubmitterName = p.FullName
			view.SubmitterEmail = p.Email
		}
		views = append(views, view)
	}
	return views, nil
}

// ListMyContentRequests returns the caller's own requests, newest first.
func (s *service) ListMyContentRequests(ctx context.Context, actor Actor) ([]*ContentRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repository.ListContentRequests(ctx, RequestFilter{UserID: actor.UserID})
}

// ApproveContentRequest marks a pending request approved and publishes its
// content. The status change, the insert and the content marker run in one
// transaction when the repository supports it. Otherwise the derived
// content id makes the call safe to repeat: approving an approved request
// without a content marker only finishes the interrupted steps. Once the
// marker is set the request accepts no further decisions.
func (s *service) ApproveContentRequest(ctx context.Context, actor Actor, id uuid.UUID) (*ContentItem, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	var (
		item    *ContentItem
		created bool
		cr      *ContentRequest
	)
	approve := func(repo Repository) error {
		var err error
		cr, err = repo.GetContentRequest(ctx, id)
		if err != nil {
			return err
		}
		if _, err := canApprove(cr.Status); err != nil {
			return err
		}
		if cr.ContentID != nil {
			return ErrRequestNotPending
		}
		if cr.Status == RequestStatusPending {
			err = repo.TransitionContentRequest(ctx, id, RequestStatusPending, RequestStatusApproved, actor.UserID)
			if errors.Is(err, ErrRequestNotPending) {
				// Lost a race with another decision; only continue if it was an approval.
				latest, gerr := repo.GetContentRequest(ctx, id)
				if gerr != nil {
					return gerr
				}
				if latest.Status != RequestStatusApproved {
					return err
				}
			} else if err != nil {
				return err
			}
			cr.Status = RequestStatusApproved
			cr.AdminID = &actor.UserID
		}
		item, created, err = s.materialize(ctx, repo, cr)
		if err != nil {
			return err
		}
		return markMaterialized(ctx, repo, cr, item.ID)
	}

	var err error
	if tx, ok := s.repository.(Transactor); ok {
		err = tx.WithinTx(ctx, approve)
	} else {
		err = approve(s.repository)
	}
	if err != nil {
		s.logger.Error("failed to approve content request", "request_id", id, "error", err)
		return nil, &RequestError{RequestID: id, Op: "approve", Err: err}
	}

	s.logger.Info("content request approved", "request_id", id, "content_id", item.ID, "created", created)
	s.publish(ctx, TableContentRequests, EventUpdate, cr)
	if created {
		s.publish(ctx, TableContent, EventInsert, item)
		s.contentChanged(ContentAdded, item)
		s.notify(ctx, cr.UserID, s.t(i18n.RequestApproved), cr.Title, NotificationTypeRequestUpdate,
			map[string]string{"request_id": cr.ID.String(), "content_id": item.ID.String()})
	}
	return item, nil
}

// RejectContentRequest marks a pending request rejected. Rejection is
// terminal.
func (s *service) RejectContentRequest(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	cr, err := s.repository.GetContentRequest(ctx, id)
	if err != nil {
		return &RequestError{RequestID: id, Op: "reject", Err: err}
	}
	if _, err := canReject(cr.Status); err != nil {
		return &RequestError{RequestID: id, Op: "reject", Err: err}
	}
	if err := s.repository.TransitionContentRequest(ctx, id, RequestStatusPending, RequestStatusRejected, actor.UserID); err != nil {
		return &RequestError{RequestID: id, Op: "reject", Err: err}
	}
	cr.Status = RequestStatusRejected
	cr.AdminID = &actor.UserID

	s.logger.Info("content request rejected", "request_id", id)
	s.publish(ctx, TableContentRequests, EventUpdate, cr)
	s.notify(ctx, cr.UserID, s.t(i18n.RequestRejected), cr.Title, NotificationTypeRequestUpdate,
		map[string]string{"request_id": cr.ID.String()})
	return nil
}

// ReconcileApprovals finishes approvals that stopped before the request was
// marked with its content item, and returns how many items it created.
// Requests that carry the marker are skipped, so content an admin deleted
// later stays deleted.
func (s *service) ReconcileApprovals(ctx context.Context) (int, error) {
	reqs, err := s.repository.ListContentRequests(ctx, RequestFilter{Status: RequestStatusApproved})
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, cr := range reqs {
		if cr.ContentID != nil {
			continue
		}
		item, created, err := s.materialize(ctx, s.repository, cr)
		if err == nil {
			err = markMaterialized(ctx, s.repository, cr, item.ID)
		}
		if err != nil {
			s.logger.Error("reconcile approval failed", "request_id", cr.ID, "error", err)
			continue
		}
		if created {
			repaired++
			s.logger.Warn("approved request was missing its content", "request_id", cr.ID, "content_id", item.ID)
			s.publish(ctx, TableContent, EventInsert, item)
			s.contentChanged(ContentAdded, item)
		}
	}
	return repaired, nil
}

func markMaterialized(ctx context.Context, repo Repository, cr *ContentRequest, contentID uuid.UUID) error {
	if err := repo.SetRequestContent(ctx, cr.ID, contentID); err != nil {
		return err
	}
	cr.ContentID = &contentID
	return nil
}

// materialize ensures the content item derived from an approved request
// exists. It reports whether this call created it.
func (s *service) materialize(ctx context.Context, repo Repository, cr *ContentRequest) (*ContentItem, bool, error) {
	contentID := ApprovedContentID(cr.ID)
	existing, err := repo.GetContent(ctx, contentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrContentNotFound) {
		return nil, false, err
	}

	item := &ContentItem{
		ID:          contentID,
		Title:       cr.Title,
		Description: cr.Description,
		URL:         cr.URL,
		Type:        cr.Type,
		StageID:     cr.StageID,
		CategoryID:  cr.CategoryID,
		CreatedBy:   cr.UserID,
		CreatedAt:   s.timestamp(),
	}
	if err := repo.CreateContent(ctx, item); err != nil {
		var cerr *ConstraintError
		if errors.As(err, &cerr) && cerr.Kind == ConstraintDuplicate {
			existing, gerr := repo.GetContent(ctx, contentID)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return item, true, nil
}
