package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alumninet/apiserver/internal/storage"
	"github.com/alumninet/apiserver/types"
	"github.com/google/uuid"
)

// MaxAvatarBytes caps the size of an uploaded profile picture.
const MaxAvatarBytes = 5 << 20

// ErrNotAnImage is returned when an upload does not sniff as an image.
var ErrNotAnImage = errors.New("avatar must be an image")

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// AvatarService stores profile pictures in object storage and records
// their public URL on the user.
type AvatarService struct {
	storage *storage.Storage
	users   UserRepository
}

func NewAvatarService(st *storage.Storage, users UserRepository) *AvatarService {
	return &AvatarService{storage: st, users: users}
}

// Upload stores the picture bytes under a fresh key and updates the
// user's picture URL. The previous object, if any, is deleted
// best-effort so replaced avatars do not pile up in the bucket.
func (s *AvatarService) Upload(ctx context.Context, userID int64, data []byte) (types.User, error) {
	contentType := http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return types.User{}, ErrNotAnImage
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	key := fmt.Sprintf("avatars/%s.%s", uuid.NewString(), ext)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.User{}, fmt.Errorf("store avatar: %w", err)
	}

	pictureURL := s.storage.URL(key)
	updated, err := s.users.UpdateByID(ctx, userID, types.UserPatch{Picture: &pictureURL})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return types.User{}, err
	}

	if oldKey := s.objectKey(current.Picture); oldKey != "" {
		_ = s.storage.Delete(ctx, oldKey)
	}

	return updated, nil
}

// objectKey extracts the object key from a picture URL previously
// issued by this service. Foreign URLs yield "".
func (s *AvatarService) objectKey(pictureURL string) string {
	if pictureURL == "" {
		return ""
	}
	marker := "/avatars/"
	idx := strings.Index(pictureURL, marker)
	if idx < 0 {
		return ""
	}
	return "avatars/" + pictureURL[idx+len(marker):]
}
