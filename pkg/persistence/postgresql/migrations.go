package postgresql

// Versioned schema migrations, applied in order by sqlbase.MigrationManager.
var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			max_concurrency INTEGER NOT NULL DEFAULT 2,
			nodes JSONB NOT NULL DEFAULT '[]',
			edges JSONB NOT NULL DEFAULT '[]',
			default_project_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS workflow_runs (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			agent_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			input JSONB,
			output JSONB,
			snapshot JSONB NOT NULL,
			current_node_ids JSONB NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow_id ON workflow_runs(workflow_id);
		CREATE INDEX IF NOT EXISTS idx_workflow_runs_status ON workflow_runs(status);

		CREATE TABLE IF NOT EXISTS node_runs (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
			node_id TEXT NOT NULL,
			node_type TEXT NOT NULL,
			status TEXT NOT NULL,
			input JSONB,
			output JSONB,
			session_id TEXT,
			task_id TEXT,
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP WITH TIME ZONE,
			completed_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT node_runs_run_node_unique UNIQUE (run_id, node_id)
		);

		CREATE INDEX IF NOT EXISTS idx_node_runs_run_id ON node_runs(run_id);
	`,
}
