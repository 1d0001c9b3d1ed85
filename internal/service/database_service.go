package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type documentAdmin interface {
	LoadAll(ctx context.Context, keys []string) (map[string][]byte, error)
	ReplaceAll(ctx context.Context, docs map[string][]byte) error
	Clear(ctx context.Context, keys []string) error
}

type collectionSeeder interface {
	Seed(ctx context.Context, withDefaults bool) error
}

type userLister interface {
	GetAll(ctx context.Context) ([]models.User, error)
}

type rotationLister interface {
	GetAll(ctx context.Context) ([]models.ClinicalRotation, error)
}

// DatabaseServiceParams groups constructor dependencies.
type DatabaseServiceParams struct {
	Documents   documentAdmin
	Seeder      collectionSeeder
	Users       userLister
	Students    studentLister
	Lecturers   lecturerLister
	Assignments assignmentLister
	Rotations   rotationLister
	Schedules   onCallLister
	Plans       teachingPlanLister
	Reports     reportLister
	Cache       *CacheService
	Logger      *zap.Logger
}

// DatabaseService backs up, restores and audits the stored collections.
type DatabaseService struct {
	docs   documentAdmin
	seeder collectionSeeder
	p      DatabaseServiceParams
	cache  *CacheService
	logger *zap.Logger
}

// NewDatabaseService constructs the database administration service.
func NewDatabaseService(params DatabaseServiceParams) *DatabaseService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseService{docs: params.Documents, seeder: params.Seeder, p: params, cache: params.Cache, logger: logger}
}

// Export returns one JSON object holding every entity collection. Absent
// collections are exported as empty arrays.
func (s *DatabaseService) Export(ctx context.Context) ([]byte, error) {
	raw, err := s.docs.LoadAll(ctx, models.EntityKeys)
	if err != nil {
		return nil, storageError(err, "failed to load collections")
	}
	out := make(map[string]json.RawMessage, len(models.EntityKeys))
	for _, key := range models.EntityKeys {
		payload, ok := raw[key]
		if !ok || len(bytes.TrimSpace(payload)) == 0 {
			payload = []byte("[]")
		}
		out[key] = json.RawMessage(payload)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "stored collection is not valid JSON")
	}
	return payload, nil
}

// Import replaces every entity collection with the contents of payload. Keys
// missing from the payload are written as empty arrays. Each collection must
// decode into its record type and every record needs an id; nothing is
// written otherwise.
func (s *DatabaseService) Import(ctx context.Context, payload []byte) (*models.ImportSummary, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, validationError(err, "backup must be a JSON object")
	}
	if len(doc) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backup contains no collections")
	}
	for key := range doc {
		if _, ok := recordDecoders[key]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown collection %q", key))
		}
	}

	docs := make(map[string][]byte, len(models.EntityKeys))
	summary := &models.ImportSummary{Collections: make(map[string]int, len(models.EntityKeys))}
	for _, key := range models.EntityKeys {
		value, ok := doc[key]
		if !ok {
			docs[key] = []byte("[]")
			summary.Collections[key] = 0
			continue
		}
		count, err := recordDecoders[key](value)
		if err != nil {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("collection %q is invalid: %v", key, err), map[string]string{"collection": key})
		}
		docs[key] = []byte(value)
		summary.Collections[key] = count
	}

	if err := s.docs.ReplaceAll(ctx, docs); err != nil {
		return nil, storageError(err, "failed to import collections")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("database imported", zap.Int("collections", len(docs)), zap.Int("provided", len(doc)))
	return summary, nil
}

// recordDecoders checks a raw collection against the record type stored
// under each key and returns the number of records.
var recordDecoders = map[string]func(json.RawMessage) (int, error){
	models.KeyUsers:         decodeRecords[models.User],
	models.KeyStudents:      decodeRecords[models.Student],
	models.KeyLecturers:     decodeRecords[models.Lecturer],
	models.KeyAssignments:   decodeRecords[models.Assignment],
	models.KeyRotations:     decodeRecords[models.ClinicalRotation],
	models.KeySchedules:     decodeRecords[models.OnCallSchedule],
	models.KeyReports:       decodeRecords[models.ClinicalReport],
	models.KeyTeachingPlans: decodeRecords[models.TeachingPlan],
}

func decodeRecords[T any](raw json.RawMessage) (int, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return 0, errors.New("must be a JSON array")
	}
	for i, elem := range elems {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(elem, &head); err != nil || bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			return 0, fmt.Errorf("record %d is not an object", i)
		}
		if strings.TrimSpace(head.ID) == "" {
			return 0, fmt.Errorf("record %d has no id", i)
		}
		var record T
		if err := json.Unmarshal(elem, &record); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return len(elems), nil
}

// Reset clears every collection and restores the default records.
func (s *DatabaseService) Reset(ctx context.Context) error {
	if err := s.docs.Clear(ctx, models.EntityKeys); err != nil {
		return storageError(err, "failed to clear collections")
	}
	if err := s.seeder.Seed(ctx, true); err != nil {
		return storageError(err, "failed to seed collections")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Warn("database reset to defaults")
	return nil
}

// Orphans reports stored references to students, lecturers and users that do
// not exist. Nothing is repaired.
func (s *DatabaseService) Orphans(ctx context.Context) (*models.IntegrityReport, error) {
	users, err := s.p.Users.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load users")
	}
	students, err := s.p.Students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	lecturers, err := s.p.Lecturers.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load lecturers")
	}
	assignments, err := s.p.Assignments.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load assignments")
	}
	rotations, err := s.p.Rotations.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load rotations")
	}
	schedules, err := s.p.Schedules.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load on-call schedules")
	}
	plans, err := s.p.Plans.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load teaching plans")
	}
	reports, err := s.p.Reports.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load clinical reports")
	}

	userIDs := make(map[string]struct{}, len(users))
	for _, u := range users {
		userIDs[u.ID] = struct{}{}
	}
	studentIDs := indexStudents(students)
	lecturerIDs := indexLecturers(lecturers)

	report := &models.IntegrityReport{Orphans: make([]models.OrphanReference, 0)}
	add := func(collection, recordID, field, missing string) {
		report.Orphans = append(report.Orphans, models.OrphanReference{Collection: collection, RecordID: recordID, Field: field, MissingID: missing})
	}
	student := func(collection, recordID, field, id string) {
		if _, ok := studentIDs[id]; !ok {
			add(collection, recordID, field, id)
		}
	}
	lecturer := func(collection, recordID, field, id string) {
		if id == "" {
			return
		}
		if _, ok := lecturerIDs[id]; !ok {
			add(collection, recordID, field, id)
		}
	}

	for _, a := range assignments {
		for _, id := range a.StudentIDs {
			student(models.KeyAssignments, a.ID, "studentIds", id)
		}
		lecturer(models.KeyAssignments, a.ID, "lecturerId", a.LecturerID)
	}
	for _, r := range rotations {
		student(models.KeyRotations, r.ID, "studentId", r.StudentID)
	}
	for _, sc := range schedules {
		student(models.KeySchedules, sc.ID, "studentId", sc.StudentID)
	}
	for _, p := range plans {
		lecturer(models.KeyTeachingPlans, p.ID, "lecturerId", p.LecturerID)
	}
	for _, r := range reports {
		if _, ok := userIDs[r.LecturerID]; !ok {
			add(models.KeyReports, r.ID, "lecturerId", r.LecturerID)
		}
		for _, act := range r.LecturerActivities {
			lecturer(models.KeyReports, r.ID, "lecturerActivities.lecturerId", act.LecturerID)
		}
		for _, abs := range r.AbsentStudents {
			student(models.KeyReports, r.ID, "absentStudents.studentId", abs.StudentID)
		}
	}

	sort.SliceStable(report.Orphans, func(i, j int) bool {
		if report.Orphans[i].Collection != report.Orphans[j].Collection {
			return report.Orphans[i].Collection < report.Orphans[j].Collection
		}
		return report.Orphans[i].RecordID < report.Orphans[j].RecordID
	})
	report.Total = len(report.Orphans)
	return report, nil
}
