package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
	"TC-CERT/internal/storage"
)

// setupTestDB points the package-level DB at a fresh in-memory sqlite
// database. The DSN is derived from the test name so parallel packages do
// not share state, and cache=shared keeps the database alive across pooled
// connections.
func setupTestDB(t *testing.T) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.CourseType{},
		&models.CertificateTemplate{},
		&models.Certificate{},
		&models.Delegate{},
		&models.Candidate{},
		&models.Statistics{},
		&models.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	internal.DB = db
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		internal.DB = nil
	})
}

// stubStorage is an in-memory StorageClient for service tests.
type stubStorage struct {
	objects map[string][]byte
}

func newStubStorage() *stubStorage {
	return &stubStorage{objects: make(map[string][]byte)}
}

func (s *stubStorage) UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.objects[objectName] = data
	return &storage.UploadResult{ObjectName: objectName, Size: int64(len(data))}, nil
}

func (s *stubStorage) DeleteFile(ctx context.Context, objectName string) error {
	delete(s.objects, objectName)
	return nil
}

func (s *stubStorage) ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	data, ok := s.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *stubStorage) GetSignedURL(objectName string, expiry time.Duration) (string, error) {
	return "https://files.test/" + objectName, nil
}

func (s *stubStorage) Close() error {
	return nil
}

// stubRenderer satisfies CertificateRenderer with canned output, optionally
// failing to simulate a Gotenberg outage.
type stubRenderer struct {
	fail     bool
	rendered int
}

func (r *stubRenderer) RenderCertificate(ctx context.Context, tpl *models.CertificateTemplate, values map[string]string, backgroundURL string) (io.ReadCloser, error) {
	if r.fail {
		return nil, fmt.Errorf("gotenberg unavailable")
	}
	r.rendered++
	return io.NopCloser(strings.NewReader("%PDF-1.7 stub")), nil
}

func intPtr(n int) *int {
	return &n
}

// seedCourseType inserts a course type with code CPC and the given validity.
func seedCourseType(t *testing.T, validityMonths *int) *models.CourseType {
	t.Helper()
	ct := &models.CourseType{
		ID:                        "ct-1",
		Code:                      "CPC",
		Name:                      "Certificate of Professional Competence",
		CertificateValidityMonths: validityMonths,
		DurationValue:             5,
		DurationUnit:              "days",
		RequiredFields:            `[{"name":"course_location","scope":"course"},{"name":"licence_no","scope":"candidate"}]`,
		DefaultCourseData:         `{"course_location":"Head Office"}`,
	}
	if err := internal.DB.Create(ct).Error; err != nil {
		t.Fatalf("failed to seed course type: %v", err)
	}
	return ct
}

func seedTemplate(t *testing.T, courseTypeID string) *models.CertificateTemplate {
	t.Helper()
	tpl := &models.CertificateTemplate{
		ID:           "tpl-1",
		CourseTypeID: courseTypeID,
		Name:         "CPC Landscape",
		PageWidth:    2480,
		PageHeight:   3508,
		Fields:       `[{"id":"candidate_name","x":440,"y":1180,"width":1600,"height":160,"font_size":96,"font_family":"Helvetica","color":"#000000","align":"center","bold":true}]`,
		Active:       true,
	}
	if err := internal.DB.Create(tpl).Error; err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	return tpl
}

func seedDelegate(t *testing.T, id, openCourseID, name string) *models.Delegate {
	t.Helper()
	delegate := &models.Delegate{
		ID:           id,
		OpenCourseID: openCourseID,
		FullName:     name,
		FieldValues:  `{"licence_no":"L-99001"}`,
	}
	if err := internal.DB.Create(delegate).Error; err != nil {
		t.Fatalf("failed to seed delegate: %v", err)
	}
	return delegate
}
