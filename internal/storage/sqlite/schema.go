package sqlite

const schema = `
-- Projects table: root of ownership for everything else
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Tasks table. parent_id is the single source of truth for the tree;
-- child lists are derived by query, never stored.
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    description TEXT NOT NULL DEFAULT '',
    completed INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT REFERENCES tasks(id) ON DELETE CASCADE,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    priority TEXT NOT NULL DEFAULT '' CHECK(priority IN ('', 'low', 'medium', 'high')),
    position INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

-- Requirements table
CREATE TABLE IF NOT EXISTS requirements (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL CHECK(type IN ('functional', 'technical', 'non-functional', 'user_story')),
    priority TEXT NOT NULL CHECK(priority IN ('low', 'medium', 'high', 'critical')),
    status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'proposed', 'approved', 'rejected', 'implemented', 'verified')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requirements_project ON requirements(project_id);
CREATE INDEX IF NOT EXISTS idx_requirements_status ON requirements(status);

-- Requirement tags table
CREATE TABLE IF NOT EXISTS requirement_tags (
    requirement_id TEXT NOT NULL REFERENCES requirements(id) ON DELETE CASCADE,
    tag TEXT NOT NULL,
    PRIMARY KEY (requirement_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_requirement_tags_tag ON requirement_tags(tag);

-- Technical requirements table. unique_id is the human-readable sequence
-- code ("TR-003") assigned from sequence_counters; never reused.
CREATE TABLE IF NOT EXISTS technical_requirements (
    id TEXT PRIMARY KEY,
    unique_id TEXT NOT NULL UNIQUE,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL CHECK(type IN ('functional', 'technical', 'non-functional', 'user_story')),
    technical_stack TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'unassigned' CHECK(status IN ('unassigned', 'assigned', 'in_progress', 'review', 'completed')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_techreqs_project ON technical_requirements(project_id);
CREATE INDEX IF NOT EXISTS idx_techreqs_status ON technical_requirements(status);

-- Acceptance criteria table, owned exclusively by one technical requirement
CREATE TABLE IF NOT EXISTS acceptance_criteria (
    id TEXT PRIMARY KEY,
    tech_requirement_id TEXT NOT NULL REFERENCES technical_requirements(id) ON DELETE CASCADE,
    description TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_criteria_techreq ON acceptance_criteria(tech_requirement_id);

-- Dependency edges between technical requirements (directed, no self-loops)
CREATE TABLE IF NOT EXISTS tr_dependencies (
    dependent_id TEXT NOT NULL REFERENCES technical_requirements(id) ON DELETE CASCADE,
    dependency_id TEXT NOT NULL REFERENCES technical_requirements(id) ON DELETE CASCADE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (dependent_id, dependency_id),
    CHECK (dependent_id != dependency_id)
);

CREATE INDEX IF NOT EXISTS idx_tr_dependencies_dependency ON tr_dependencies(dependency_id);

-- Discovery sessions table: at most one session per (project, stage)
CREATE TABLE IF NOT EXISTS discovery_sessions (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    domain TEXT NOT NULL DEFAULT '',
    stage TEXT NOT NULL CHECK(stage IN ('initial', 'stakeholders', 'features', 'constraints', 'quality', 'finalize')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (project_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON discovery_sessions(project_id);

-- Session responses live in their own table keyed by (session, key) so
-- concurrent recordings insert independent rows instead of racing on a
-- serialized blob.
CREATE TABLE IF NOT EXISTS discovery_responses (
    session_id TEXT NOT NULL REFERENCES discovery_sessions(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    response TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, key)
);

-- Monotonic sequence counters (e.g. 'TR' for technical requirement
-- unique ids). Counters only ever move forward; deletes leave gaps.
CREATE TABLE IF NOT EXISTS sequence_counters (
    prefix TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL DEFAULT 0
);
`
