package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/store"
)

func TestJobStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	job := &models.Job{
		Name: "team/deploy",
		Kind: models.JobKindPipeline,
		Parameters: &models.ParametersProperty{Definitions: []models.ParameterSpec{
			{Token: models.NewToken(), Type: models.ParameterTypeChoice, Name: "ENV", Choices: []string{"a", "b"}},
		}},
	}
	if err := s.Jobs().Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" || job.CreatedAt.IsZero() {
		t.Fatal("Create should assign an ID and timestamps")
	}
	if err := s.Jobs().Create(ctx, &models.Job{Name: "team/deploy"}); !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("duplicate Create error = %v", err)
	}

	got, err := s.Jobs().GetByName(ctx, "team/deploy")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	// Reads are copies.
	got.Parameters.Definitions[0].Choices[0] = "mutated"
	again, _ := s.Jobs().Get(ctx, job.ID)
	if again.Parameters.Definitions[0].Choices[0] != "a" {
		t.Error("mutating a read job changed the stored job")
	}

	again.Description = "updated"
	if err := s.Jobs().Update(ctx, again); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := s.Jobs().Get(ctx, job.ID); got.Description != "updated" {
		t.Errorf("description = %q", got.Description)
	}
	if err := s.Jobs().Update(ctx, &models.Job{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update missing error = %v", err)
	}

	if err := s.Jobs().Create(ctx, &models.Job{Name: "alpha"}); err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	jobs, _ := s.Jobs().List(ctx)
	if len(jobs) != 2 || jobs[0].Name != "alpha" {
		t.Errorf("List = %v", jobs)
	}

	if err := s.Jobs().Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Jobs().GetByName(ctx, "team/deploy"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByName after Delete error = %v", err)
	}
	if err := s.Jobs().Delete(ctx, job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete error = %v", err)
	}
}

func TestJobStoreTokens(t *testing.T) {
	ctx := context.Background()
	s := New()

	shared := models.NewToken()
	alpha := &models.Job{
		Name: "alpha",
		Parameters: &models.ParametersProperty{Definitions: []models.ParameterSpec{
			{Token: shared, Type: models.ParameterTypeString, Name: "VERSION"},
			{Type: models.ParameterTypeBoolean, Name: "FAST"},
		}},
	}
	if err := s.Jobs().Create(ctx, alpha); err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	if alpha.ParameterSpecs()[1].Token.IsZero() {
		t.Error("Create should assign a token to definitions without one")
	}

	beta := &models.Job{
		Name: "beta",
		Parameters: &models.ParametersProperty{Definitions: []models.ParameterSpec{
			{Token: shared, Type: models.ParameterTypeString, Name: "VERSION"},
		}},
	}
	if err := s.Jobs().Create(ctx, beta); !errors.Is(err, store.ErrDuplicateToken) {
		t.Fatalf("Create with a foreign token error = %v, want ErrDuplicateToken", err)
	}
	if _, err := s.Jobs().GetByName(ctx, "beta"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rejected job was stored: %v", err)
	}

	beta.Parameters = nil
	if err := s.Jobs().Create(ctx, beta); err != nil {
		t.Fatalf("Create beta: %v", err)
	}
	beta.Parameters = &models.ParametersProperty{Definitions: []models.ParameterSpec{
		{Token: shared, Type: models.ParameterTypeString, Name: "VERSION"},
	}}
	if err := s.Jobs().Update(ctx, beta); !errors.Is(err, store.ErrDuplicateToken) {
		t.Errorf("Update with a foreign token error = %v, want ErrDuplicateToken", err)
	}

	twice := models.NewToken()
	beta.Parameters.Definitions = []models.ParameterSpec{
		{Token: twice, Type: models.ParameterTypeString, Name: "A"},
		{Token: twice, Type: models.ParameterTypeString, Name: "B"},
	}
	if err := s.Jobs().Update(ctx, beta); !errors.Is(err, store.ErrDuplicateToken) {
		t.Errorf("Update reusing a token error = %v, want ErrDuplicateToken", err)
	}

	// A job may keep its own tokens across updates.
	again, _ := s.Jobs().Get(ctx, alpha.ID)
	again.Description = "reconfigured"
	if err := s.Jobs().Update(ctx, again); err != nil {
		t.Errorf("Update keeping own tokens: %v", err)
	}
}

func TestBuildStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	job := &models.Job{Name: "deploy"}
	if err := s.Jobs().Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	if err := s.Builds().Create(ctx, &models.Build{JobID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("build of unknown job error = %v", err)
	}
	if _, err := s.Builds().Last(ctx, job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Last without builds error = %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		b := &models.Build{JobID: job.ID}
		if err := s.Builds().Create(ctx, b); err != nil {
			t.Fatalf("Create build: %v", err)
		}
		if b.Number != i+1 || b.Status != models.BuildStatusQueued {
			t.Errorf("build %d = %+v", i, b)
		}
		ids = append(ids, b.ID)
	}

	if err := s.Builds().UpdateStatus(ctx, ids[0], models.BuildStatusSucceeded, map[string]string{"K": "v"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := s.Builds().UpdateStatus(ctx, ids[2], models.BuildStatusFailed, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := s.Builds().UpdateStatus(ctx, "missing", models.BuildStatusFailed, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateStatus missing error = %v", err)
	}

	last, _ := s.Builds().Last(ctx, job.ID)
	if last.Number != 3 || last.FinishedAt == nil {
		t.Errorf("Last = %+v", last)
	}
	ok, _ := s.Builds().LastSuccessful(ctx, job.ID)
	if ok.Number != 1 || ok.EnvVars["K"] != "v" {
		t.Errorf("LastSuccessful = %+v", ok)
	}

	builds, _ := s.Builds().List(ctx, job.ID)
	if len(builds) != 3 || builds[0].Number != 3 || builds[2].Number != 1 {
		t.Errorf("List order = %v", builds)
	}
	if b, err := s.Builds().GetByNumber(ctx, job.ID, 2); err != nil || b.ID != ids[1] {
		t.Errorf("GetByNumber = %v, %v", b, err)
	}

	if err := s.Jobs().Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Builds().Get(ctx, ids[0]); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("builds should be removed with their job, got %v", err)
	}
}

func TestConcurrentBuildNumbers(t *testing.T) {
	ctx := context.Background()
	s := New()
	job := &models.Job{Name: "deploy"}
	if err := s.Jobs().Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	numbers := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := &models.Build{JobID: job.ID}
			if err := s.Builds().Create(ctx, b); err == nil {
				numbers <- b.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for num := range numbers {
		if seen[num] {
			t.Fatalf("build number %d assigned twice", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Errorf("assigned %d numbers, want %d", len(seen), n)
	}
}
