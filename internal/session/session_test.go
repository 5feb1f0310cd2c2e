// ABOUTME: Tests for session records and storage
// ABOUTME: Verifies roles, payload decoding and file-backed slots

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"USER", RoleUser, false},
		{"moderator", RoleModerator, false},
		{" Admin ", RoleAdmin, false},
		{"root", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasRole(t *testing.T) {
	var none *Session
	assert.False(t, none.HasRole(RoleUser, RoleAdmin))

	mod := &Session{Role: RoleModerator}
	assert.True(t, mod.HasRole(RoleModerator, RoleAdmin))
	assert.False(t, mod.HasRole(RoleAdmin))
	assert.False(t, mod.HasRole())
}

func TestSameIdentity(t *testing.T) {
	a := &Session{ID: 1, Username: "alice", Email: "a@example.com", Role: RoleUser}
	b := a.Clone()
	b.Avatar = "/avatars/1.png"

	assert.True(t, a.SameIdentity(b), "profile-only changes keep the identity")

	b.Role = RoleAdmin
	assert.False(t, a.SameIdentity(b))

	var none *Session
	assert.True(t, none.SameIdentity(nil))
	assert.False(t, none.SameIdentity(a))
}

func TestDecode(t *testing.T) {
	for _, empty := range []string{"", "  ", "null", " null\n"} {
		sess, err := Decode([]byte(empty))
		assert.NoError(t, err)
		assert.Nil(t, sess, "input %q", empty)
	}

	sess, err := Decode([]byte(`{"id":3,"username":"carol","role":"MODERATOR","visitCount":4}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), sess.ID)
	assert.Equal(t, RoleModerator, sess.Role)
	assert.Equal(t, 4, sess.VisitCount)

	_, err = Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "carportal")
	fs := NewFileStorage(dir)

	_, ok, err := fs.Get(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok, "missing directory reads as empty")

	require.NoError(t, fs.Set(StorageKey, []byte(`{"username":"alice"}`)))

	info, err := os.Stat(filepath.Join(dir, StorageKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, ok, err := fs.Get(StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"username":"alice"}`, string(data))

	require.NoError(t, fs.Remove(StorageKey))
	require.NoError(t, fs.Remove(StorageKey), "removing twice is fine")
	_, ok, _ = fs.Get(StorageKey)
	assert.False(t, ok)
}

func TestFileStorage_RejectsBadKeys(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.Error(t, fs.Set(key, []byte("x")), "key %q", key)
	}
}

func TestDefaultConfigDir_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "carportal"), DefaultConfigDir())
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	ms := NewMemoryStorage()
	value := []byte("abc")
	require.NoError(t, ms.Set("k", value))
	value[0] = 'x'

	got, ok, err := ms.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(got))
}
