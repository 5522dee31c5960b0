package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	phone_number TEXT,
	date_of_birth DATE,
	address TEXT,
	ssn TEXT UNIQUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_ssn ON users(ssn);
`

// Init creates the users table and its indexes if absent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Name and address pools for seeding. The data only has to look real
// enough to exercise the redaction rules.
var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
		"Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan",
		"Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen", "Steven",
		"Nancy", "Daniel", "Lisa", "Alice",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
		"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	}
	streets = []string{
		"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Elm St", "Park Blvd",
		"Lake View Rd", "Hillcrest Ave", "Sunset Dr", "River Rd",
	}
	cities = []string{
		"Springfield", "Riverton", "Fairview", "Georgetown", "Clinton",
		"Madison", "Franklin", "Arlington", "Salem", "Bristol",
	}
	states = []string{"CA", "NY", "TX", "WA", "IL", "OH", "GA", "NC", "MI", "OR"}
)

// Seed populates the table with count fake users. A fixed rng seed keeps
// test databases reproducible; pass 0 to randomize from the clock.
func (s *Store) Seed(ctx context.Context, count int, seed int64) error {
	if count <= 0 {
		count = 100
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO users (first_name, last_name, email, phone_number, date_of_birth, address, ssn)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < count; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		email := fmt.Sprintf("%s.%s%d@example.com",
			strings.ToLower(first), strings.ToLower(last), i)
		phone := fmt.Sprintf("(%03d) %03d-%04d",
			200+rng.Intn(800), 200+rng.Intn(800), rng.Intn(10000))
		dob := randomDOB(rng)
		address := fmt.Sprintf("%d %s, %s, %s %05d",
			1+rng.Intn(9999), streets[rng.Intn(len(streets))],
			cities[rng.Intn(len(cities))], states[rng.Intn(len(states))],
			10000+rng.Intn(89999))
		ssn := fmt.Sprintf("%03d-%02d-%04d",
			100+rng.Intn(800), 10+rng.Intn(89), 1000+rng.Intn(9000))

		if _, err := stmt.ExecContext(ctx, first, last, email, phone, dob, address, ssn); err != nil {
			return fmt.Errorf("store: insert user %d: %w", i, err)
		}
	}
	return nil
}

// randomDOB renders a birth date between 18 and 90 years old.
func randomDOB(rng *rand.Rand) string {
	now := time.Now().UTC()
	age := 18 + rng.Intn(72)
	d := now.AddDate(-age, 0, -rng.Intn(365))
	return d.Format("2006-01-02")
}

// Count returns the number of seeded users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
