package storage

import (
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestFileFromObject(t *testing.T) {
	info := minio.ObjectInfo{
		Key:         "uploads/f1",
		ContentType: "image/png",
		Size:        2048,
		UserMetadata: map[string]string{
			"X-Amz-Meta-Owner": "cust-1",
			"Filename":         "screenshot.png",
			"Status":           "pending",
		},
	}
	file := fileFromObject("f1", info)
	assert.Equal(t, "f1", file.ID)
	assert.Equal(t, "cust-1", file.OwnerID)
	assert.Equal(t, "screenshot.png", file.Name)
	assert.Equal(t, "image/png", file.MimeType)
	assert.Equal(t, int64(2048), file.SizeBytes)
	assert.Equal(t, domain.FileStatusPending, file.Status)
	assert.False(t, file.Bound())
}

func TestFileFromObjectDefaults(t *testing.T) {
	file := fileFromObject("f2", minio.ObjectInfo{Key: "uploads/report.pdf"})
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, domain.FileStatusUploaded, file.Status)
	assert.Empty(t, file.OwnerID)
}

func TestDecodeClaim(t *testing.T) {
	target, err := decodeClaim([]byte(`{"kind":"comment","id":"c1","ticket_id":"t1","bound_by":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AttachmentTarget{Kind: domain.BindingComment, ID: "c1", TicketID: "t1"}, *target)

	_, err = decodeClaim([]byte("not json"))
	assert.Error(t, err)
}
