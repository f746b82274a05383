package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "field.json")

	if err := os.WriteFile(testFile, []byte(`{"fieldId":"f1","name":"Food","created":"2024-01-02T00:00:00Z"}`), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var field domain.Field
	LoadFixtureJSON(t, testFile, &field)

	if field.FieldID != "f1" || field.Name != "Food" {
		t.Errorf("unexpected field %+v", field)
	}
	if !field.Created.Equal(Date(2024, time.January, 2)) {
		t.Errorf("expected created 2024-01-02, got %v", field.Created)
	}
}

func TestLoadLedger_JoinsAuthors(t *testing.T) {
	tmpDir := t.TempDir()
	fx := LedgerFixture{
		Users: []domain.User{{UID: "u1", DisplayName: "Ada", Email: "ada@example.com"}},
		Transactions: []domain.Transaction{
			{TransactionID: "t1", AuthorID: "u1", Type: domain.Income, Price: 10},
			{TransactionID: "t2", AuthorID: "ghost", Type: domain.Expense, Price: 5},
		},
	}
	data, err := json.Marshal(fx)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "testdata"), 0o755); err != nil {
		t.Fatalf("failed to create testdata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "testdata", "ledger.json"), data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	t.Chdir(tmpDir)

	got := LoadLedger(t, "ledger.json")
	if len(got.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got.Transactions))
	}
	if got.Transactions[0].Author == nil || got.Transactions[0].Author.Email != "ada@example.com" {
		t.Errorf("expected author joined on t1, got %+v", got.Transactions[0].Author)
	}
	if got.Transactions[1].Author != nil {
		t.Errorf("expected no author for unknown uid, got %+v", got.Transactions[1].Author)
	}
}

func TestTransactionIDs(t *testing.T) {
	list := []domain.Transaction{{TransactionID: "b"}, {TransactionID: "a"}}

	if got := TransactionIDs(list); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("unexpected ids %v", got)
	}
	if got := SortedIDs(list); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected sorted ids %v", got)
	}
	if got := TransactionIDs(nil); len(got) != 0 {
		t.Errorf("expected no ids, got %v", got)
	}
}

func TestLoadGolden(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "test.golden")
	goldenContent := []byte("expected output content")

	if err := os.WriteFile(goldenFile, goldenContent, 0o644); err != nil {
		t.Fatalf("failed to create golden file: %v", err)
	}

	result := LoadGolden(t, goldenFile)
	if string(result) != string(goldenContent) {
		t.Errorf("expected %q, got %q", goldenContent, result)
	}
}

func TestWriteGolden(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "subdir", "test.golden")
	testContent := []byte("test golden content")

	WriteGolden(t, goldenFile, testContent)

	result, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("failed to read written golden file: %v", err)
	}

	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestCompareWithGolden(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "")
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "test.golden")
	testContent := []byte("test content")

	// missing golden file is created
	CompareWithGolden(t, goldenFile, testContent)

	result, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("failed to read created golden file: %v", err)
	}
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}

	CompareWithGolden(t, goldenFile, testContent)
}

func TestCompareWithGolden_Update(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "1")
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "test.golden")

	if err := os.WriteFile(goldenFile, []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to create golden file: %v", err)
	}

	CompareWithGolden(t, goldenFile, []byte("new"))

	result := LoadGolden(t, goldenFile)
	if string(result) != "new" {
		t.Errorf("expected golden file to be rewritten, got %q", result)
	}
}

func TestFixturePath(t *testing.T) {
	result := FixturePath("test.json")
	expected := filepath.Join("testdata", "test.json")

	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestGoldenPath(t *testing.T) {
	result := GoldenPath("output.csv")
	expected := filepath.Join("testdata", "golden", "output.csv")

	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}
