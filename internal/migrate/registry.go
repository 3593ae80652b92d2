package migrate

// registry is the ordered list of schema changes for the marketplace
// database. Append only; released versions are never edited (the journal
// checksum enforces this).
var registry = []Migration{
	{
		Version:     1,
		Description: "baseline profiles and items tables",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS profiles (
				id UUID PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				display_name TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS items (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL REFERENCES profiles(id),
				title TEXT NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)`,
		},
	},
	{
		Version:     2,
		Description: "profiles DID identity columns",
		Statements: []string{
			`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS did_identifier TEXT`,
			`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS did_document JSONB`,
			`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS public_key TEXT`,
			`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS did_created_at TIMESTAMPTZ`,
			`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS did_updated_at TIMESTAMPTZ`,
			`CREATE INDEX IF NOT EXISTS idx_profiles_did_identifier ON profiles(did_identifier)`,
		},
	},
	{
		Version:     3,
		Description: "verifiable credentials table",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS verifiable_credentials (
				id UUID PRIMARY KEY,
				profile_id UUID NOT NULL REFERENCES profiles(id),
				credential_type TEXT NOT NULL,
				credential JSONB NOT NULL,
				issued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				revoked_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_verifiable_credentials_profile ON verifiable_credentials(profile_id)`,
		},
	},
	{
		Version:     4,
		Description: "items handover verification flag",
		Statements: []string{
			`ALTER TABLE items ADD COLUMN IF NOT EXISTS handover_verification_enabled BOOLEAN DEFAULT FALSE`,
			`CREATE INDEX IF NOT EXISTS idx_items_handover_verification ON items(handover_verification_enabled)`,
			`UPDATE items SET handover_verification_enabled = FALSE WHERE handover_verification_enabled IS NULL`,
		},
	},
}

// Registry returns a copy of the registered migrations so callers cannot
// mutate the canonical list.
func Registry() []Migration {
	out := make([]Migration, len(registry))
	copy(out, registry)
	return out
}
