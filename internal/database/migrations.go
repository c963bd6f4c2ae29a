package database

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Obligations reference tontines only through a weak linked_tontine_id
// (no foreign key): the cascade is handled by the tontine service, not
// the store.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    balance BIGINT NOT NULL DEFAULT 0,
    allow_negative_balance BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS categories (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    nature TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    account_id BIGINT NOT NULL REFERENCES accounts(id),
    category_id BIGINT NOT NULL REFERENCES categories(id),
    amount BIGINT NOT NULL,
    label TEXT NOT NULL,
    transaction_date DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tontines (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    total_members INT NOT NULL,
    contribution_amount BIGINT NOT NULL,
    frequency TEXT NOT NULL,
    start_date DATE NOT NULL,
    current_cycle INT NOT NULL DEFAULT 1,
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tontine_members (
    id BIGSERIAL PRIMARY KEY,
    tontine_id BIGINT NOT NULL REFERENCES tontines(id) ON DELETE CASCADE,
    member_name TEXT NOT NULL,
    phone_number TEXT,
    position_in_order INT NOT NULL,
    is_current_user BOOLEAN NOT NULL DEFAULT FALSE,
    payout_date DATE NOT NULL,
    has_received_pot BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS tontine_payments (
    id BIGSERIAL PRIMARY KEY,
    tontine_id BIGINT NOT NULL REFERENCES tontines(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    amount BIGINT NOT NULL,
    cycle_number INT NOT NULL,
    account_id BIGINT NOT NULL REFERENCES accounts(id),
    payment_date DATE NOT NULL,
    idempotency_key TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS obligations (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    person_name TEXT NOT NULL,
    description TEXT,
    total_amount BIGINT NOT NULL,
    remaining_amount BIGINT NOT NULL,
    due_date DATE,
    confidence TEXT NOT NULL DEFAULT 'CERTAIN',
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    linked_tontine_id BIGINT,
    linked_fixed_charge_id BIGINT,
    linked_savings_goal_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS obligation_payments (
    id BIGSERIAL PRIMARY KEY,
    obligation_id BIGINT NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
    amount BIGINT NOT NULL,
    payment_date DATE NOT NULL,
    account_id BIGINT NOT NULL REFERENCES accounts(id),
    notes TEXT,
    idempotency_key TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_tontine_members_tontine_id ON tontine_members(tontine_id);
CREATE INDEX IF NOT EXISTS idx_tontine_payments_tontine_id ON tontine_payments(tontine_id);
CREATE INDEX IF NOT EXISTS idx_obligations_user_id ON obligations(user_id);
CREATE INDEX IF NOT EXISTS idx_obligations_linked_tontine_id ON obligations(linked_tontine_id);
CREATE INDEX IF NOT EXISTS idx_obligation_payments_obligation_id ON obligation_payments(obligation_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
