package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func setupMockMySQL(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func setupMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestGetTableColumns_SQLite(t *testing.T) {
	db := setupSQLite(t)

	err := db.Exec(`CREATE TABLE test_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL UNIQUE,
		description TEXT
	)`).Error
	require.NoError(t, err)

	live, err := GetTableColumns(db, "test_items")
	require.NoError(t, err)
	require.Len(t, live.Columns, 3)
	assert.Equal(t, []string{"id", "name", "description"}, live.ColumnNames())

	id, _ := live.Column("id")
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.AllowNull)

	name, _ := live.Column("name")
	assert.Equal(t, "varchar(255)", name.Type)
	assert.False(t, name.AllowNull)
	assert.True(t, name.Unique)

	desc, _ := live.Column("description")
	assert.True(t, desc.AllowNull)
	assert.False(t, desc.Unique)

	_, err = GetTableColumns(db, "non_existent")
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = GetTableColumns(db, "bad'name")
	assert.Error(t, err)
}

func TestGetTableColumns_MySQL(t *testing.T) {
	db, mock := setupMockMySQL(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("id", "int(11)", "NO", "PRI", nil, "auto_increment").
		AddRow("Name", "varchar(255)", "NO", "UNI", nil, "").
		AddRow("pinned", "tinyint(1)", "YES", "", "0", "")
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `windows`")).WillReturnRows(rows)

	live, err := GetTableColumns(db, "windows")
	require.NoError(t, err)
	require.Len(t, live.Columns, 3)

	assert.Equal(t, "id", live.Columns[0].Name)
	assert.True(t, live.Columns[0].PrimaryKey)
	assert.True(t, live.Columns[0].AutoIncrement)
	assert.Equal(t, "name", live.Columns[1].Name)
	assert.True(t, live.Columns[1].Unique)
	assert.True(t, live.Columns[2].AllowNull)
	assert.Equal(t, "tinyint(1)", live.Columns[2].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUniqueConstraints_Postgres(t *testing.T) {
	db, mock := setupMockPostgres(t)

	rows := sqlmock.NewRows([]string{"constraint_name", "column_name"}).
		AddRow("users_email_key", "email").
		AddRow("users_org_slug_key", "org_id").
		AddRow("users_org_slug_key", "slug")
	mock.ExpectQuery("SELECT tc.constraint_name, kcu.column_name").
		WithArgs("users").
		WillReturnRows(rows)

	got, err := ListUniqueConstraints(db, "users")
	require.NoError(t, err)
	assert.Equal(t, []UniqueConstraint{
		{Name: "users_email_key", Columns: []string{"email"}},
		{Name: "users_org_slug_key", Columns: []string{"org_id", "slug"}},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropUniqueConstraint(t *testing.T) {
	t.Run("MySQL drops the index", func(t *testing.T) {
		db, mock := setupMockMySQL(t)
		mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `users` DROP INDEX `name`")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, DropUniqueConstraint(db, "users", "name"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Postgres drops the constraint", func(t *testing.T) {
		db, mock := setupMockPostgres(t)
		mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "users" DROP CONSTRAINT "users_name_key"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, DropUniqueConstraint(db, "users", "users_name_key"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SQLite is a no-op", func(t *testing.T) {
		db := setupSQLite(t)
		assert.NoError(t, DropUniqueConstraint(db, "users", "anything"))
	})
}

func TestListBackupTables(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT)").Error)
	require.NoError(t, db.Exec("CREATE TABLE users_temp_backup (id INTEGER)").Error)
	require.NoError(t, db.Exec("CREATE TABLE apps (id INTEGER PRIMARY KEY)").Error)

	tables, err := ListTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"apps", "users", "users_temp_backup"}, tables)

	backups, err := ListBackupTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"users_temp_backup"}, backups)
	assert.Equal(t, "users", SourceTableName(backups[0]))
	assert.Equal(t, "users_temp_backup", BackupTableName("users"))
}

type pinnedNote struct {
	ID   int
	Body string
}

func (pinnedNote) TableName() string { return "notes" }

func TestGetTableColumns_PinnedConnectionKeepsCallerState(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO notes (body) VALUES ('hello')`).Error)

	err := db.WithContext(context.Background()).Connection(func(conn *gorm.DB) error {
		_, err := GetTableColumns(conn, "notes")
		require.NoError(t, err)
		_, err = ListUniqueConstraints(conn, "notes")
		require.NoError(t, err)

		var rows []pinnedNote
		if err := conn.Find(&rows).Error; err != nil {
			return err
		}
		assert.Equal(t, []pinnedNote{{ID: 1, Body: "hello"}}, rows)
		return nil
	})
	require.NoError(t, err)
}
