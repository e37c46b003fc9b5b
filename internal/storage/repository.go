package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finflow/internal/core"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DSN returns the modernc connection string for dbPath with foreign keys
// enforced on every pooled connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection, used by the health endpoint.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func parseStoredDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// --- expenses ---

const expenseColumns = "id, date, title, amount_cents, category, type, source, source_id, created_at"

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &date, &e.Title, &e.Amount.Cents, &e.Category, &e.Type, &e.Source, &e.SourceID, &createdAt); err != nil {
		return e, err
	}
	d, err := parseStoredDate(date)
	if err != nil {
		return e, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	e.Date = d
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}

func insertExpense(ctx context.Context, tx *sql.Tx, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`, sync_status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Title, e.Amount.Cents, e.Category, string(e.Type), string(e.Source), e.SourceID,
		e.CreatedAt.UnixNano(), SyncPending,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertExpense(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, notFound("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.Year != 0 && f.Month != 0:
		where = append(where, "date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%02d-%%", f.Year, f.Month))
	case f.Year != 0:
		where = append(where, "date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%%", f.Year))
	case f.Month != 0:
		where = append(where, "substr(date, 6, 2) = ?")
		args = append(args, fmt.Sprintf("%02d", f.Month))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}

	q := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return r.queryExpenses(ctx, q, args...)
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, q string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, title = ?, amount_cents = ?, category = ?, type = ?, sync_status = ?, synced_at = NULL
		 WHERE id = ?`,
		e.Date.String(), e.Title, e.Amount.Cents, e.Category, string(e.Type), SyncPending, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := checkAffected(res, "expense", e.ID); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Expense updated in SQLite", "id", e.ID, "amount_cents", e.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return checkAffected(res, "expense", id)
}

func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE sync_status = ? ORDER BY created_at ASC LIMIT ?`,
		SyncPending, limit)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, synced_at = ? WHERE id = ?`,
		status, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	return checkAffected(res, "expense", id)
}

// MarkSynced marks an expense as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncDone); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an expense as having sync errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncError); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// --- recurring obligations ---

const recurringColumns = "id, description, amount_cents, category, frequency, start_date, next_due_date, active, last_fulfilled"

func scanRecurring(row rowScanner) (core.RecurringObligation, error) {
	var (
		o                    core.RecurringObligation
		start, next, lastFul string
		active               int
	)
	if err := row.Scan(&o.ID, &o.Description, &o.Amount.Cents, &o.Category, &o.Frequency, &start, &next, &active, &lastFul); err != nil {
		return o, err
	}
	var err error
	if o.StartDate, err = parseStoredDate(start); err != nil {
		return o, fmt.Errorf("recurring %s start: %w", o.ID, err)
	}
	if o.NextDueDate, err = parseStoredDate(next); err != nil {
		return o, fmt.Errorf("recurring %s next due: %w", o.ID, err)
	}
	if o.LastFulfilled, err = parseStoredDate(lastFul); err != nil {
		return o, fmt.Errorf("recurring %s last fulfilled: %w", o.ID, err)
	}
	o.Active = active != 0
	return o, nil
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, o *core.RecurringObligation) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_obligations (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Description, o.Amount.Cents, o.Category, string(o.Frequency),
		o.StartDate.String(), o.NextDueDate.String(), boolInt(o.Active), o.LastFulfilled.String(),
	)
	if err != nil {
		return fmt.Errorf("insert recurring obligation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id string) (core.RecurringObligation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_obligations WHERE id = ?`, id)
	o, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return o, notFound("recurring obligation", id)
	}
	if err != nil {
		return o, fmt.Errorf("get recurring obligation: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_obligations ORDER BY next_due_date ASC, description ASC`)
	if err != nil {
		return nil, fmt.Errorf("list recurring obligations: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringObligation{}
	for rows.Next() {
		o, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring obligation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring obligations: %w", err)
	}
	return out, nil
}

func updateRecurring(ctx context.Context, exec execer, o core.RecurringObligation) error {
	res, err := exec.ExecContext(ctx,
		`UPDATE recurring_obligations
		 SET description = ?, amount_cents = ?, category = ?, frequency = ?, start_date = ?,
		     next_due_date = ?, active = ?, last_fulfilled = ?
		 WHERE id = ?`,
		o.Description, o.Amount.Cents, o.Category, string(o.Frequency), o.StartDate.String(),
		o.NextDueDate.String(), boolInt(o.Active), o.LastFulfilled.String(), o.ID,
	)
	if err != nil {
		return fmt.Errorf("update recurring obligation: %w", err)
	}
	return checkAffected(res, "recurring obligation", o.ID)
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, o core.RecurringObligation) error {
	return updateRecurring(ctx, r.db, o)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring obligation: %w", err)
	}
	return checkAffected(res, "recurring obligation", id)
}

func (r *SQLiteRepository) FulfillRecurring(ctx context.Context, o core.RecurringObligation, e *core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateRecurring(ctx, tx, o); err != nil {
		return err
	}
	if err := insertExpense(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fulfilment: %w", err)
	}

	slog.InfoContext(ctx, "Recurring obligation fulfilled",
		"id", o.ID,
		"expense_id", e.ID,
		"next_due_date", o.NextDueDate.String())
	return nil
}

// --- bill reminders ---

const billColumns = "id, name, amount_cents, category, due_date, reminder_lead_days, paid, paid_date"

func scanBill(row rowScanner) (core.BillReminder, error) {
	var (
		b             core.BillReminder
		due, paidDate string
		paid          int
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Amount.Cents, &b.Category, &due, &b.ReminderLeadDays, &paid, &paidDate); err != nil {
		return b, err
	}
	var err error
	if b.DueDate, err = parseStoredDate(due); err != nil {
		return b, fmt.Errorf("bill %s due date: %w", b.ID, err)
	}
	if b.PaidDate, err = parseStoredDate(paidDate); err != nil {
		return b, fmt.Errorf("bill %s paid date: %w", b.ID, err)
	}
	b.Paid = paid != 0
	return b, nil
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b *core.BillReminder) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bill_reminders (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.Cents, b.Category, b.DueDate.String(), b.ReminderLeadDays,
		boolInt(b.Paid), b.PaidDate.String(),
	)
	if err != nil {
		return fmt.Errorf("insert bill reminder: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.BillReminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bill_reminders WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, notFound("bill", id)
	}
	if err != nil {
		return b, fmt.Errorf("get bill reminder: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.BillReminder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bill_reminders ORDER BY due_date ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bill reminders: %w", err)
	}
	defer rows.Close()

	out := []core.BillReminder{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill reminder: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill reminders: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.BillReminder) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bill_reminders
		 SET name = ?, amount_cents = ?, category = ?, due_date = ?, reminder_lead_days = ?, paid = ?, paid_date = ?
		 WHERE id = ?`,
		b.Name, b.Amount.Cents, b.Category, b.DueDate.String(), b.ReminderLeadDays,
		boolInt(b.Paid), b.PaidDate.String(), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update bill reminder: %w", err)
	}
	return checkAffected(res, "bill", b.ID)
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bill_reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill reminder: %w", err)
	}
	return checkAffected(res, "bill", id)
}

// --- split expenses ---

func insertParticipants(ctx context.Context, tx *sql.Tx, s core.SplitExpense) error {
	for i, p := range s.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO split_participants (split_id, position, name, share_cents, percentage, is_payer, settled)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, i, p.Name, p.Share.Cents, p.Percentage.String(), boolInt(p.IsPayer), boolInt(p.Settled),
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) CreateSplit(ctx context.Context, s *core.SplitExpense) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO split_expenses (id, title, total_cents, category, strategy, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.TotalAmount.Cents, s.Category, string(s.Strategy), s.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert split expense: %w", err)
	}
	if err := insertParticipants(ctx, tx, *s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadParticipants(ctx context.Context, s *core.SplitExpense) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, share_cents, percentage, is_payer, settled FROM split_participants WHERE split_id = ? ORDER BY position`,
		s.ID)
	if err != nil {
		return fmt.Errorf("get participants: %w", err)
	}
	defer rows.Close()

	s.Participants = []core.Participant{}
	for rows.Next() {
		var (
			p                core.Participant
			pct              string
			isPayer, settled int
		)
		if err := rows.Scan(&p.Name, &p.Share.Cents, &pct, &isPayer, &settled); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		if p.Percentage, err = decimal.NewFromString(pct); err != nil {
			return fmt.Errorf("participant %s percentage: %w", p.Name, err)
		}
		p.IsPayer = isPayer != 0
		p.Settled = settled != 0
		s.Participants = append(s.Participants, p)
	}
	return rows.Err()
}

func scanSplit(row rowScanner) (core.SplitExpense, error) {
	var (
		s         core.SplitExpense
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.Title, &s.TotalAmount.Cents, &s.Category, &s.Strategy, &createdAt); err != nil {
		return s, err
	}
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	return s, nil
}

func (r *SQLiteRepository) GetSplit(ctx context.Context, id string) (core.SplitExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, total_cents, category, strategy, created_at FROM split_expenses WHERE id = ?`, id)
	s, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, notFound("split", id)
	}
	if err != nil {
		return s, fmt.Errorf("get split expense: %w", err)
	}
	if err := r.loadParticipants(ctx, &s); err != nil {
		return s, err
	}
	return s, nil
}

func (r *SQLiteRepository) ListSplits(ctx context.Context) ([]core.SplitExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, total_cents, category, strategy, created_at FROM split_expenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list split expenses: %w", err)
	}
	out := []core.SplitExpense{}
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan split expense: %w", err)
		}
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate split expenses: %w", err)
	}

	for i := range out {
		if err := r.loadParticipants(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateSplit(ctx context.Context, s core.SplitExpense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE split_expenses SET title = ?, total_cents = ?, category = ?, strategy = ? WHERE id = ?`,
		s.Title, s.TotalAmount.Cents, s.Category, string(s.Strategy), s.ID)
	if err != nil {
		return fmt.Errorf("update split expense: %w", err)
	}
	if err := checkAffected(res, "split", s.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM split_participants WHERE split_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSplit(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM split_participants WHERE split_id = ?`, id); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM split_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete split expense: %w", err)
	}
	if err := checkAffected(res, "split", id); err != nil {
		return err
	}
	return tx.Commit()
}
