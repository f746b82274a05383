package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
)

// UpdateGoldenEnv rewrites golden files instead of comparing against them
// when set to a non empty value.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LedgerFixture is the on-disk shape of a ledger snapshot.
type LedgerFixture struct {
	Users        []domain.User        `json:"users"`
	Fields       []domain.Field       `json:"fields"`
	Transactions []domain.Transaction `json:"transactions"`
}

// LoadLedger reads testdata/<name> and joins every transaction with its
// author from the fixture users, the way a list read does.
func LoadLedger(t *testing.T, name string) LedgerFixture {
	t.Helper()

	var fx LedgerFixture
	LoadFixtureJSON(t, FixturePath(name), &fx)

	byUID := make(map[string]domain.User, len(fx.Users))
	for _, u := range fx.Users {
		byUID[u.UID] = u
	}
	for i, tx := range fx.Transactions {
		if u, ok := byUID[tx.AuthorID]; ok {
			author := u
			fx.Transactions[i].Author = &author
		}
	}
	return fx
}

// TransactionIDs returns the ids of list in order.
func TransactionIDs(list []domain.Transaction) []string {
	ids := make([]string, 0, len(list))
	for _, tx := range list {
		ids = append(ids, tx.TransactionID)
	}
	return ids
}

// SortedIDs is TransactionIDs sorted, for order insensitive comparisons.
func SortedIDs(list []domain.Transaction) []string {
	ids := TransactionIDs(list)
	sort.Strings(ids)
	return ids
}

// Date is a midnight UTC date for table tests.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// LoadGolden loads expected test output from a golden file.
func LoadGolden(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load golden file from %s: %v", path, err)
	}

	return data
}

// WriteGolden writes test output to a golden file, creating its directory.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with the golden file at path.
// A missing golden file is created, and UPDATE_GOLDEN rewrites it.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	if os.Getenv(UpdateGoldenEnv) != "" {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
