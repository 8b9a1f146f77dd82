// certaudit cross-checks enrollments' persisted certificate URLs against the
// artifacts on disk. A URL without a backing file means generation was
// interrupted after the database write; those enrollments will re-render on
// the next request, but the audit makes the backlog visible.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type orphan struct {
	EnrollmentID   string `db:"id"`
	StudentID      string `db:"student_id"`
	CertificateURL string `db:"certificate_url"`
}

func main() {
	var (
		dsn        string
		storageDir string
		timeout    time.Duration
	)

	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flag.StringVar(&storageDir, "storage-dir", "./storage/certificates", "Certificate storage directory")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Query timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("no DSN: pass -dsn or set DATABASE_URL")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	const query = `SELECT id, student_id, certificate_url FROM enrollments WHERE certificate_url IS NOT NULL`
	var rows []orphan
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		log.Fatalf("failed to list enrollments: %v", err)
	}

	missing := 0
	for _, row := range rows {
		filename := path.Base(row.CertificateURL)
		if _, err := os.Stat(filepath.Join(storageDir, filename)); err != nil {
			missing++
			fmt.Printf("MISSING  enrollment=%s student=%s url=%s\n", row.EnrollmentID, row.StudentID, row.CertificateURL)
		}
	}

	fmt.Printf("\nchecked %d certificate urls, %d missing artifacts\n", len(rows), missing)
	if missing > 0 {
		os.Exit(1)
	}
}
