package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				version INTEGER NOT NULL DEFAULT 0,
				graph JSONB,
				trigger_config JSONB,
				rate_limit_config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_tenant_id ON workflows(tenant_id);
			CREATE INDEX idx_workflows_status ON workflows(status);

			CREATE TABLE workflow_snapshots (
				workflow_id UUID NOT NULL,
				version INTEGER NOT NULL,
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, version)
			);

			CREATE TABLE workflow_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				workflow_version INTEGER NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'waiting', 'completed', 'failed', 'cancelled')),
				trigger_data JSONB,
				context JSONB,
				current_node_id VARCHAR(255),
				attempt INTEGER NOT NULL DEFAULT 1,
				not_before TIMESTAMP WITH TIME ZONE,
				cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
				result JSONB,
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_runs_workflow_id ON workflow_runs(workflow_id);
			CREATE INDEX idx_workflow_runs_status ON workflow_runs(status);
			CREATE INDEX idx_workflow_runs_not_before ON workflow_runs(not_before) WHERE not_before IS NOT NULL;

			CREATE TABLE workflow_logs (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				node_kind VARCHAR(50) NOT NULL,
				attempt INTEGER NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('success', 'failed', 'skipped', 'scheduled')),
				input JSONB,
				output JSONB,
				note TEXT,
				tokens_used INTEGER NOT NULL DEFAULT 0,
				cost NUMERIC(12, 6) NOT NULL DEFAULT 0,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				error_message TEXT,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (run_id, node_id, attempt)
			);

			CREATE INDEX idx_workflow_logs_run_id ON workflow_logs(run_id, executed_at);
		`,
	}
}
