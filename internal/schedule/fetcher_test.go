package schedule

import "testing"

func TestIsFresh_NothingRememberedYet(t *testing.T) {
	f := &Fetcher{}
	if !f.isFresh("", "") {
		t.Error("first observation should always be fresh")
	}
}

func TestIsFresh_UnchangedHeadersAreNotFresh(t *testing.T) {
	f := &Fetcher{lastModified: "Mon, 01 Jan 2024 00:00:00 GMT", etag: `"abc"`}
	if f.isFresh("Mon, 01 Jan 2024 00:00:00 GMT", `"abc"`) {
		t.Error("identical headers should not be considered fresh")
	}
}

func TestIsFresh_ChangedETagIsFresh(t *testing.T) {
	f := &Fetcher{lastModified: "Mon, 01 Jan 2024 00:00:00 GMT", etag: `"abc"`}
	if !f.isFresh("Mon, 01 Jan 2024 00:00:00 GMT", `"xyz"`) {
		t.Error("changed etag should be fresh")
	}
}

func TestIsFresh_NewerLastModifiedIsFresh(t *testing.T) {
	f := &Fetcher{lastModified: "Mon, 01 Jan 2024 00:00:00 GMT"}
	if !f.isFresh("Tue, 02 Jan 2024 00:00:00 GMT", "") {
		t.Error("a strictly newer Last-Modified should be fresh")
	}
}

func TestIsFresh_OlderLastModifiedWithBothETagsPresentAndEqualIsNotFresh(t *testing.T) {
	f := &Fetcher{lastModified: "Tue, 02 Jan 2024 00:00:00 GMT", etag: `"abc"`}
	if f.isFresh("Mon, 01 Jan 2024 00:00:00 GMT", `"abc"`) {
		t.Error("an older Last-Modified with an unchanged, present ETag should not be fresh")
	}
}

// TestIsFresh_NoETagOnEitherSideIsAlwaysFresh covers a deployment that
// never sends an ETag: absence of an ETag on either side forces "fresh"
// regardless of how Last-Modified compares, matching the original
// source's etag_changed behavior (true whenever either side is absent,
// including both absent).
func TestIsFresh_NoETagOnEitherSideIsAlwaysFresh(t *testing.T) {
	f := &Fetcher{lastModified: "Tue, 02 Jan 2024 00:00:00 GMT"}
	if !f.isFresh("Mon, 01 Jan 2024 00:00:00 GMT", "") {
		t.Error("an older Last-Modified with no ETag on either side should still be fresh")
	}
}
