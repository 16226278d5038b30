package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
)

func newTestCertificateService(renderer CertificateRenderer) (*CertificateService, *stubStorage) {
	store := newStubStorage()
	return NewCertificateService(store, NewNumberingService(), renderer, NewStatisticsService()), store
}

func TestIssueCreatesCertificateWithNumberAndExpiry(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	renderer := &stubRenderer{}
	svc, store := newTestCertificateService(renderer)

	cert, err := svc.Issue(context.Background(), SubjectRef{DelegateID: "del-1"}, "tpl-1", map[string]string{"course_location": "Leeds Depot"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	wantNumber := fmt.Sprintf("CPC-%d-00001", time.Now().Year())
	if cert.Number != wantNumber {
		t.Errorf("number = %s, want %s", cert.Number, wantNumber)
	}
	if cert.Status != models.StatusIssued {
		t.Errorf("status = %s, want issued", cert.Status)
	}
	if cert.ExpiryDate == nil {
		t.Fatal("expected an expiry date for a 12-month course type")
	}
	wantExpiry := time.Now().AddDate(0, 12, 0)
	if diff := cert.ExpiryDate.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry = %v, want about %v", cert.ExpiryDate, wantExpiry)
	}

	values := cert.Values()
	if values["candidate_name"] != "Ada Lovelace" {
		t.Errorf("candidate_name = %q", values["candidate_name"])
	}
	if values["certificate_number"] != cert.Number {
		t.Errorf("certificate_number = %q", values["certificate_number"])
	}
	if values["course_location"] != "Leeds Depot" {
		t.Errorf("course values must override course-type defaults, got %q", values["course_location"])
	}
	if values["licence_no"] != "L-99001" {
		t.Errorf("candidate-level values must be merged, got %q", values["licence_no"])
	}
	if values["course_duration"] != "5 days" {
		t.Errorf("course_duration = %q", values["course_duration"])
	}

	var delegate models.Delegate
	if err := internal.DB.First(&delegate, "id = ?", "del-1").Error; err != nil {
		t.Fatalf("failed to reload delegate: %v", err)
	}
	if !delegate.CertificateIssued || delegate.CertificateNumber != cert.Number {
		t.Errorf("delegate back-reference not written: issued=%v number=%s", delegate.CertificateIssued, delegate.CertificateNumber)
	}

	if cert.PDFPath == "" {
		t.Error("expected a pdf path after successful rendering")
	}
	if _, ok := store.objects[cert.PDFPath]; !ok {
		t.Errorf("pdf object %s was not uploaded", cert.PDFPath)
	}
}

func TestIssueWithoutValidityNeverExpires(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, nil)
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	svc, _ := newTestCertificateService(&stubRenderer{})

	cert, err := svc.Issue(context.Background(), SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if cert.ExpiryDate != nil {
		t.Errorf("expected no expiry date, got %v", cert.ExpiryDate)
	}
	if cert.ToItem(time.Now()).Validity != models.ValidityValid {
		t.Errorf("certificate without expiry must report valid")
	}
}

func TestIssueSurvivesRendererFailure(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	svc, _ := newTestCertificateService(&stubRenderer{fail: true})

	cert, err := svc.Issue(context.Background(), SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("a renderer outage must not fail issuance: %v", err)
	}
	if cert.Status != models.StatusIssued {
		t.Errorf("status = %s, want issued", cert.Status)
	}
	if cert.PDFPath != "" {
		t.Errorf("pdf path must stay empty after a render failure, got %s", cert.PDFPath)
	}

	var stored models.Certificate
	if err := internal.DB.First(&stored, "id = ?", cert.ID).Error; err != nil {
		t.Fatalf("certificate was not persisted: %v", err)
	}
}

func TestIssueRejectsBadSubjectRefs(t *testing.T) {
	setupTestDB(t)
	svc, _ := newTestCertificateService(&stubRenderer{})

	if _, err := svc.Issue(context.Background(), SubjectRef{}, "tpl-1", nil); !errors.Is(err, ErrBadSubjectRef) {
		t.Errorf("empty ref: got %v, want ErrBadSubjectRef", err)
	}
	both := SubjectRef{DelegateID: "d", CandidateID: "c"}
	if _, err := svc.Issue(context.Background(), both, "tpl-1", nil); !errors.Is(err, ErrBadSubjectRef) {
		t.Errorf("double ref: got %v, want ErrBadSubjectRef", err)
	}
}

func TestIssueUnknownTemplate(t *testing.T) {
	setupTestDB(t)
	svc, _ := newTestCertificateService(&stubRenderer{})

	_, err := svc.Issue(context.Background(), SubjectRef{DelegateID: "del-1"}, "nope", nil)
	if !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("got %v, want ErrTemplateMissing", err)
	}
}

func TestRevokeRequiresReason(t *testing.T) {
	setupTestDB(t)
	svc, _ := newTestCertificateService(&stubRenderer{})

	if err := svc.Revoke(context.Background(), "cert-1", "   "); !errors.Is(err, ErrRevokeWithoutReason) {
		t.Errorf("got %v, want ErrRevokeWithoutReason", err)
	}
}

func TestRevokeResetsDelegateButNotCandidate(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	candidate := &models.Candidate{
		ID:        "cand-1",
		BookingID: "bk-1",
		FullName:  "Grace Hopper",
	}
	if err := internal.DB.Create(candidate).Error; err != nil {
		t.Fatalf("failed to seed candidate: %v", err)
	}

	svc, _ := newTestCertificateService(&stubRenderer{})
	ctx := context.Background()

	delegateCert, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue for delegate failed: %v", err)
	}
	candidateCert, err := svc.Issue(ctx, SubjectRef{CandidateID: "cand-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue for candidate failed: %v", err)
	}

	if err := svc.Revoke(ctx, delegateCert.ID, "issued to wrong course"); err != nil {
		t.Fatalf("Revoke delegate certificate failed: %v", err)
	}
	if err := svc.Revoke(ctx, candidateCert.ID, "failed re-assessment"); err != nil {
		t.Fatalf("Revoke candidate certificate failed: %v", err)
	}

	var delegate models.Delegate
	internal.DB.First(&delegate, "id = ?", "del-1")
	if delegate.CertificateIssued || delegate.CertificateNumber != "" {
		t.Errorf("delegate flags must reset on revoke: issued=%v number=%q", delegate.CertificateIssued, delegate.CertificateNumber)
	}

	var cand models.Candidate
	internal.DB.First(&cand, "id = ?", "cand-1")
	if !cand.Passed || cand.CertificateNumber != candidateCert.Number {
		t.Errorf("candidate flags must survive revoke: passed=%v number=%q", cand.Passed, cand.CertificateNumber)
	}

	var stored models.Certificate
	internal.DB.First(&stored, "id = ?", delegateCert.ID)
	if stored.Status != models.StatusRevoked || stored.RevokedAt == nil || stored.RevokedReason == "" {
		t.Errorf("revocation not recorded: %+v", stored)
	}
}

func TestRevokeIsTerminal(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	svc, _ := newTestCertificateService(&stubRenderer{})
	ctx := context.Background()

	cert, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := svc.Revoke(ctx, cert.ID, "duplicate"); err != nil {
		t.Fatalf("first Revoke failed: %v", err)
	}
	if err := svc.Revoke(ctx, cert.ID, "again"); !errors.Is(err, ErrAlreadyRevoked) {
		t.Errorf("got %v, want ErrAlreadyRevoked", err)
	}
}

func TestRegeneratePDFReplacesPath(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	renderer := &stubRenderer{fail: true}
	svc, store := newTestCertificateService(renderer)
	ctx := context.Background()

	cert, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if cert.PDFPath != "" {
		t.Fatalf("setup: expected an empty pdf path")
	}

	renderer.fail = false
	pdfPath, err := svc.RegeneratePDF(ctx, cert.ID)
	if err != nil {
		t.Fatalf("RegeneratePDF failed: %v", err)
	}
	if pdfPath == "" {
		t.Fatal("expected a pdf path")
	}
	if _, ok := store.objects[pdfPath]; !ok {
		t.Errorf("pdf object %s was not uploaded", pdfPath)
	}

	var stored models.Certificate
	internal.DB.First(&stored, "id = ?", cert.ID)
	if stored.PDFPath != pdfPath {
		t.Errorf("stored pdf path = %s, want %s", stored.PDFPath, pdfPath)
	}
	if stored.Number != cert.Number || stored.Status != models.StatusIssued {
		t.Errorf("regeneration must not touch number or status: %+v", stored)
	}
}

func TestRegeneratePDFWithoutTemplate(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")

	svc, _ := newTestCertificateService(&stubRenderer{})
	ctx := context.Background()

	cert, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-1"}, "tpl-1", nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := internal.DB.Delete(&models.CertificateTemplate{}, "id = ?", "tpl-1").Error; err != nil {
		t.Fatalf("failed to delete template: %v", err)
	}

	if _, err := svc.RegeneratePDF(ctx, cert.ID); !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("got %v, want ErrTemplateMissing", err)
	}
}

func TestIssueAllTalliesAndSkipsAlreadyIssued(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")
	seedDelegate(t, "del-2", "oc-1", "Grace Hopper")
	seedDelegate(t, "del-3", "oc-2", "Alan Turing")

	already := &models.Delegate{
		ID:                "del-4",
		OpenCourseID:      "oc-1",
		FullName:          "Margaret Hamilton",
		CertificateIssued: true,
		CertificateNumber: "CPC-2025-00099",
	}
	if err := internal.DB.Create(already).Error; err != nil {
		t.Fatalf("failed to seed delegate: %v", err)
	}

	svc, _ := newTestCertificateService(&stubRenderer{})

	result, err := svc.IssueAll(context.Background(), "oc-1", "tpl-1", nil)
	if err != nil {
		t.Fatalf("IssueAll failed: %v", err)
	}
	if result.SuccessCount != 2 || result.FailCount != 0 {
		t.Errorf("result = %+v, want 2 successes", result)
	}

	var count int64
	internal.DB.Model(&models.Certificate{}).Count(&count)
	if count != 2 {
		t.Errorf("certificate count = %d, want 2", count)
	}

	numbers := map[string]bool{}
	var certs []models.Certificate
	internal.DB.Find(&certs)
	for _, c := range certs {
		if numbers[c.Number] {
			t.Errorf("duplicate number %s issued", c.Number)
		}
		numbers[c.Number] = true
	}
}

func TestIssueAllCountsFailures(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")
	seedDelegate(t, "del-2", "oc-1", "Grace Hopper")

	svc, _ := newTestCertificateService(&stubRenderer{})

	// A template whose course type is gone fails deterministically for
	// every subject.
	if err := internal.DB.Delete(&models.CourseType{}, "id = ?", "ct-1").Error; err != nil {
		t.Fatalf("failed to delete course type: %v", err)
	}

	result, err := svc.IssueAll(context.Background(), "oc-1", "tpl-1", nil)
	if err != nil {
		t.Fatalf("IssueAll failed: %v", err)
	}
	if result.SuccessCount != 0 || result.FailCount != 2 {
		t.Errorf("result = %+v, want 2 failures", result)
	}
}

func TestListFiltersBySubject(t *testing.T) {
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	seedDelegate(t, "del-1", "oc-1", "Ada Lovelace")
	seedDelegate(t, "del-2", "oc-1", "Grace Hopper")

	svc, _ := newTestCertificateService(&stubRenderer{})
	ctx := context.Background()

	if _, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-1"}, "tpl-1", nil); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Issue(ctx, SubjectRef{DelegateID: "del-2"}, "tpl-1", nil); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	all, err := svc.List("ct-1", "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 certificates, got %d", len(all))
	}

	one, err := svc.List("", "del-1", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(one) != 1 || one[0].DelegateID == nil || *one[0].DelegateID != "del-1" {
		t.Errorf("delegate filter returned %+v", one)
	}
}
