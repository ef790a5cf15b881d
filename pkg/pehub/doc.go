// Package pehub provides the core of a physical education content hub:
// browsing content filed under the stage taxonomy, moderated content
// submissions, notifications, support chat, calendar events and contact
// messages.
//
// A single Service interface orchestrates the repository (memory or
// Postgres), the blob store (memory, filesystem or S3), the realtime change
// feed and the push dispatcher. Implementations live in subpackages.
//
// Authorization
//
// Operations that modify published content or read moderation data require
// an admin. The role stored on the caller's profile is authoritative; a
// configured email allowlist is compared against it and disagreements are
// logged, never acted upon.
//
// Approval
//
// Approving a request creates exactly one content item whose id is derived
// from the request id. Repositories that implement Transactor run the status
// change and the insert atomically; for the others ReconcileApprovals fills
// in content that a failed approval left missing. Each approved request
// records the id of the item it produced, so neither a repeated approval
// nor reconciliation brings back content an admin has since deleted.
//
// Browsing
//
// The navigation and grid subpackages drive a browsing screen on top of a
// Service. The navigator walks the taxonomy and loads items at the last
// level; the grid shows them and removes deleted items through the
// navigator:
//
//	nav, err := navigation.New(svc, navigation.WithStage("primary"))
//	if err != nil {
//		return err
//	}
//	defer nav.Close()
//
//	_ = nav.SelectCategory("upper-grades")
//	_ = nav.SelectSubcategory("team-sports")
//	_ = nav.SelectContentType(ctx, "videos")
//	if err := nav.Wait(ctx); err != nil {
//		return err
//	}
//
//	g := grid.New(nav.Items(),
//		grid.WithAdmin(admin, svc),
//		grid.WithRemoveFunc(nav.RemoveItem))
//	deleted, err := g.Delete(ctx, id, func(r pehub.Resource) bool {
//		return askUser("Delete " + r.Title + "?")
//	})
package pehub
