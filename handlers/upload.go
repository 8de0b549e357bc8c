package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"duochat/chat"
	"duochat/models"
)

const (
	maxChatFileSize     = 10 << 20 // 10MB
	maxProfileImageSize = 5 << 20  // 5MB
)

var chatFileMimes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var profileImageMimes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

var (
	errFileTooLarge   = errors.New("file too large")
	errFileNotAllowed = errors.New("file type not allowed")
)

type savedFile struct {
	URL  string
	Name string
	Size int64
	Mime string
}

// saveUpload sniffs the real content type, checks it against the allow-list
// and writes the file under the uploads tree with a random name. The client's
// declared Content-Type is never trusted.
func (a *API) saveUpload(fh *multipart.FileHeader, subdir string, maxSize int64, allowed []string) (*savedFile, error) {
	if fh.Size > maxSize {
		return nil, errFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("sniffing upload: %w", err)
	}
	ok := false
	for _, m := range allowed {
		if mtype.Is(m) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errFileNotAllowed
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewinding upload: %w", err)
	}

	dir := filepath.Join(a.cfg.UploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(fh.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}

	return &savedFile{
		URL:  "/uploads/" + subdir + "/" + name,
		Name: fh.Filename,
		Size: fh.Size,
		Mime: mtype.String(),
	}, nil
}

func uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
	case errors.Is(err, errFileNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
	default:
		log.Printf("upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
	}
}

// UploadChatFile stores the attachment and sends it through the regular
// message path as an IMAGE or FILE message.
func (a *API) UploadChatFile(c *gin.Context) {
	receiverID := c.PostForm("receiverId")
	if receiverID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiverId is required"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	saved, err := a.saveUpload(fh, "chat", maxChatFileSize, chatFileMimes)
	if err != nil {
		uploadError(c, err)
		return
	}

	msgType := models.MessageTypeFile
	if strings.HasPrefix(saved.Mime, "image/") {
		msgType = models.MessageTypeImage
	}

	content := c.PostForm("content")
	if content == "" {
		content = fmt.Sprintf("Sent a %s", strings.ToLower(string(msgType)))
	}

	msg, err := a.chat.CreateMessage(c.Request.Context(), chat.CreateMessageInput{
		SenderID:   currentUserID(c),
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
		FileURL:    saved.URL,
		FileName:   saved.Name,
		FileSize:   saved.Size,
		FileType:   saved.Mime,
	})
	if errors.Is(err, chat.ErrReceiverNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}
	if err != nil {
		log.Printf("upload message failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// UploadProfileImage stores a new profile image and points the user's profile
// at it.
func (a *API) UploadProfileImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	saved, err := a.saveUpload(fh, "profiles", maxProfileImageSize, profileImageMimes)
	if err != nil {
		uploadError(c, err)
		return
	}

	user, err := a.store.Users.UpdateProfileImage(c.Request.Context(), currentUserID(c), &saved.URL)
	if err != nil {
		storeError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}
