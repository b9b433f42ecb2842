package server

import (
	"net/http"
	"testing"

	"quill/internal/models"
)

func TestProfile_ShowsAuthorPostsAndFollowCounts(t *testing.T) {
	s, app, db := setupTestServer(t)
	_ = s

	author := mustCreateUser(t, db, "profiled")
	other := mustCreateUser(t, db, "someone")
	mustCreatePost(t, db, author, "mine", nil)
	mustCreatePost(t, db, other, "not mine", nil)
	if err := db.Create(&models.Follow{FollowerID: other.ID, AuthorID: author.ID}).Error; err != nil {
		t.Fatalf("create follow: %v", err)
	}

	resp := doGet(t, app, "/profile/profiled/", "")
	wantStatus(t, resp, http.StatusOK)
	payload := decodeBody(t, resp)

	posts := postsOf(t, payload)
	if len(posts) != 1 || posts[0].(map[string]any)["text"] != "mine" {
		t.Fatalf("expected only the author's post, got %v", posts)
	}
	follow := payload["follow"].(map[string]any)
	if follow["follower_count"] != float64(1) {
		t.Fatalf("expected 1 follower, got %v", follow["follower_count"])
	}
	if follow["following"] != false {
		t.Fatalf("anonymous viewer should not be following")
	}
}

func TestProfile_UnknownUser404(t *testing.T) {
	_, app, _ := setupTestServer(t)

	resp := doGet(t, app, "/profile/nobody/", "")
	wantStatus(t, resp, http.StatusNotFound)
}

func TestFollowUnfollowFlow(t *testing.T) {
	s, app, db := setupTestServer(t)

	reader := mustCreateUser(t, db, "reader")
	author := mustCreateUser(t, db, "followed")
	mustCreatePost(t, db, author, "followed post", nil)
	cookie := sessionFor(t, s, reader)

	// Follow redirects back to the profile.
	resp := doGet(t, app, "/profile/followed/follow/", cookie)
	wantRedirect(t, resp, "/profile/followed/")

	var count int64
	db.Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", reader.ID, author.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 follow edge, got %d", count)
	}

	// Following twice leaves a single edge.
	resp = doGet(t, app, "/profile/followed/follow/", cookie)
	wantRedirect(t, resp, "/profile/followed/")
	db.Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", reader.ID, author.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected follow to stay unique, got %d edges", count)
	}

	// The followed author's posts appear in the reader's feed.
	resp = doGet(t, app, "/follow/", cookie)
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 1 {
		t.Fatalf("expected 1 feed post, got %d", got)
	}

	// Someone else's feed stays empty.
	bystander := mustCreateUser(t, db, "bystander")
	resp = doGet(t, app, "/follow/", sessionFor(t, s, bystander))
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 0 {
		t.Fatalf("expected empty feed for non-follower, got %d posts", got)
	}

	// Unfollow empties the reader's feed again.
	resp = doGet(t, app, "/profile/followed/unfollow/", cookie)
	wantRedirect(t, resp, "/profile/followed/")
	resp = doGet(t, app, "/follow/", cookie)
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 0 {
		t.Fatalf("expected empty feed after unfollow, got %d posts", got)
	}
}

func TestFollowIndex_GuestRedirectsToLogin(t *testing.T) {
	_, app, _ := setupTestServer(t)

	resp := doGet(t, app, "/follow/", "")
	wantRedirect(t, resp, "/auth/login/?next=%2Ffollow%2F")
}
