package sqlinline

// QEnsureCredentialTables creates the key tables on first start.
const QEnsureCredentialTables = `--sql 938cb4c4-7472-4174-a7e0-e9d68a97fc4a
create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create table if not exists device_keys (
    device_id text not null,
    provider text not null,
    api_key text not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    primary key (device_id, provider)
);
`
