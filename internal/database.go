package internal

import (
	"fmt"

	"TC-CERT/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(cfg *config.Config) error {
	dsn := cfg.Database.DSN()

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := autoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	fmt.Println("Database connected and migrated successfully")
	return nil
}

func autoMigrate() error {
	fmt.Println("Creating course_types table if not exists...")
	result := DB.Exec(`
        CREATE TABLE IF NOT EXISTS course_types (
            id varchar(191) PRIMARY KEY,
            code varchar(20) NOT NULL UNIQUE,
            name text NOT NULL,
            certificate_validity_months int NULL,
            duration_value int DEFAULT 0,
            duration_unit varchar(20),
            required_fields jsonb,
            default_course_data jsonb,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create course_types table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_course_types_deleted_at ON course_types(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_course_types_code ON course_types(code)")

	fmt.Println("Creating certificate_templates table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS certificate_templates (
            id varchar(191) PRIMARY KEY,
            course_type_id varchar(191) NOT NULL,
            name text NOT NULL,
            background_path text,
            page_width double precision NOT NULL,
            page_height double precision NOT NULL,
            fields jsonb,
            active boolean DEFAULT true,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create certificate_templates table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificate_templates_deleted_at ON certificate_templates(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificate_templates_course_type_id ON certificate_templates(course_type_id)")

	fmt.Println("Creating certificates table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS certificates (
            id varchar(191) PRIMARY KEY,
            number varchar(40) NOT NULL,
            course_type_id varchar(191) NOT NULL,
            template_id varchar(191) NOT NULL,
            delegate_id varchar(191) NULL,
            candidate_id varchar(191) NULL,
            issue_date timestamp(3) NOT NULL,
            expiry_date timestamp(3) NULL,
            status varchar(20) NOT NULL DEFAULT 'issued',
            revoked_at timestamp(3) NULL,
            revoked_reason text,
            pdf_path text,
            field_values jsonb,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create certificates table: %w", result.Error)
	}
	// The unique index is the only guard against the numbering read-then-write
	// race: a losing concurrent writer gets a constraint error instead of a
	// duplicate number.
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_certificates_number ON certificates(number)")
	// Pattern-ops index keeps the "max number for prefix" query off a seq scan.
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificates_number_prefix ON certificates(number varchar_pattern_ops)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificates_deleted_at ON certificates(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificates_course_type_id ON certificates(course_type_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificates_delegate_id ON certificates(delegate_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_certificates_candidate_id ON certificates(candidate_id)")

	fmt.Println("Creating delegates table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS delegates (
            id varchar(191) PRIMARY KEY,
            open_course_id varchar(191) NOT NULL,
            full_name text NOT NULL,
            email text,
            certificate_issued boolean DEFAULT false,
            certificate_number text,
            field_values jsonb,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create delegates table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_delegates_deleted_at ON delegates(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_delegates_open_course_id ON delegates(open_course_id)")

	fmt.Println("Creating candidates table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS candidates (
            id varchar(191) PRIMARY KEY,
            booking_id varchar(191) NOT NULL,
            full_name text NOT NULL,
            email text,
            passed boolean DEFAULT false,
            certificate_number text,
            field_values jsonb,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create candidates table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_candidates_deleted_at ON candidates(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_candidates_booking_id ON candidates(booking_id)")

	fmt.Println("Creating activity_logs table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS activity_logs (
            id varchar(36) PRIMARY KEY,
            method varchar(10) NOT NULL,
            path varchar(255) NOT NULL,
            user_agent text,
            ip_address varchar(45),
            request_body text,
            query_params text,
            status_code int NOT NULL,
            response_time bigint NOT NULL,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create activity_logs table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_activity_logs_deleted_at ON activity_logs(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_activity_logs_method ON activity_logs(method)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_activity_logs_path ON activity_logs(path)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at)")

	fmt.Println("Creating statistics table if not exists...")
	result = DB.Exec(`
        CREATE TABLE IF NOT EXISTS statistics (
            id varchar(36) PRIMARY KEY,
            event_type varchar(50) NOT NULL,
            course_type_id varchar(191),
            date date NOT NULL,
            count bigint NOT NULL DEFAULT 0,
            created_at timestamp(3) NULL,
            updated_at timestamp(3) NULL,
            deleted_at timestamp(3) NULL
        )
    `)
	if result.Error != nil {
		return fmt.Errorf("failed to create statistics table: %w", result.Error)
	}
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_statistics_deleted_at ON statistics(deleted_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_statistics_event_type ON statistics(event_type)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_statistics_course_type_id ON statistics(course_type_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_statistics_date ON statistics(date)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_statistics_unique ON statistics(event_type, course_type_id, date) WHERE deleted_at IS NULL")

	// Older deployments stored templates without explicit page dimensions.
	ensureTemplateColumns := map[string]string{
		"page_width":  "ALTER TABLE certificate_templates ADD COLUMN page_width double precision DEFAULT 2480",
		"page_height": "ALTER TABLE certificate_templates ADD COLUMN page_height double precision DEFAULT 3508",
		"active":      "ALTER TABLE certificate_templates ADD COLUMN active boolean DEFAULT true",
	}
	for column, stmt := range ensureTemplateColumns {
		if err := ensureColumn("certificate_templates", column, stmt); err != nil {
			return err
		}
	}

	fmt.Println("Tables created/verified successfully")
	return nil
}

func ensureColumn(table, column, statement string) error {
	if DB.Migrator().HasColumn(table, column) {
		return nil
	}

	fmt.Printf("Adding missing column %s.%s...\n", table, column)
	if err := DB.Exec(statement).Error; err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}

	return nil
}

func CloseDB() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
