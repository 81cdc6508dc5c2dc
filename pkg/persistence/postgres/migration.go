package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions and their ordered steps
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_entity_type VARCHAR(50) NOT NULL,
				trigger_conditions JSONB,
				is_active BOOLEAN NOT NULL DEFAULT true,
				organization_id UUID NOT NULL,
				user_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_org_trigger ON workflows(organization_id, trigger_type) WHERE is_active;
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE workflow_steps (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				step_order INT NOT NULL,
				action_type VARCHAR(50) NOT NULL,
				action_config JSONB NOT NULL DEFAULT '{}',
				delay_minutes INT NOT NULL DEFAULT 0,
				conditions JSONB,
				is_active BOOLEAN NOT NULL DEFAULT true
			);

			CREATE INDEX idx_workflow_steps_workflow_id ON workflow_steps(workflow_id);
		`,
		2: `
			-- One row per workflow firing; execution_log is append-only JSONB
			CREATE TABLE workflow_executions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				trigger_entity_type VARCHAR(50) NOT NULL,
				trigger_entity_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL,
				execution_log JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_executions_dedup
				ON workflow_executions(workflow_id, trigger_entity_type, trigger_entity_id, created_at);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
		`,
		3: `
			-- Scheduled session reminders claimed by the processor
			CREATE TABLE scheduled_session_reminders (
				id UUID PRIMARY KEY,
				session_id UUID NOT NULL,
				workflow_id UUID NOT NULL,
				organization_id UUID NOT NULL,
				reminder_type VARCHAR(100) NOT NULL,
				scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				error_message TEXT,
				processed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_session_reminders_due
				ON scheduled_session_reminders(scheduled_for) WHERE status = 'pending';
			CREATE INDEX idx_session_reminders_session ON scheduled_session_reminders(session_id);

			-- Deletes processed reminders older than 30 days
			CREATE OR REPLACE FUNCTION cleanup_old_session_reminders() RETURNS INT AS $$
			DECLARE
				removed INT;
			BEGIN
				DELETE FROM scheduled_session_reminders
				WHERE status <> 'pending'
				  AND scheduled_for < NOW() - INTERVAL '30 days';
				GET DIAGNOSTICS removed = ROW_COUNT;
				RETURN removed;
			END;
			$$ LANGUAGE plpgsql;
		`,
		4: `
			-- Business entities workflows act on
			CREATE TABLE organizations (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				name VARCHAR(255)
			);

			CREATE TABLE leads (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255),
				phone VARCHAR(100),
				status_id UUID,
				assignee_id UUID,
				user_id UUID
			);

			CREATE TABLE lead_field_values (
				lead_id UUID NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
				field_key VARCHAR(255) NOT NULL,
				value TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (lead_id, field_key)
			);

			CREATE TABLE projects (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				lead_id UUID,
				name VARCHAR(255) NOT NULL,
				status_id UUID,
				user_id UUID
			);

			CREATE TABLE sessions (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				lead_id UUID,
				project_id UUID,
				name VARCHAR(255),
				session_date VARCHAR(10) NOT NULL,
				session_time VARCHAR(8) NOT NULL,
				location TEXT,
				notes TEXT,
				status VARCHAR(50)
			);

			CREATE INDEX idx_sessions_org ON sessions(organization_id);

			CREATE TABLE activities (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				organization_id UUID NOT NULL,
				type VARCHAR(50) NOT NULL,
				content TEXT NOT NULL,
				reminder_date VARCHAR(10),
				reminder_time VARCHAR(8),
				project_id UUID,
				lead_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE notifications (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				user_id UUID NOT NULL,
				notification_type VARCHAR(100) NOT NULL,
				delivery_method VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE organization_settings (
				organization_id UUID PRIMARY KEY,
				business_name VARCHAR(255),
				date_format VARCHAR(20) NOT NULL DEFAULT 'MM/DD/YYYY',
				time_format VARCHAR(5) NOT NULL DEFAULT '12h',
				timezone VARCHAR(100) NOT NULL DEFAULT 'UTC'
			);

			-- Recomputes pending reminders for a session from the active
			-- session_reminder workflows of its organization
			CREATE OR REPLACE FUNCTION schedule_session_reminders(p_session_id UUID) RETURNS VOID AS $$
			BEGIN
				DELETE FROM scheduled_session_reminders
				WHERE session_id = p_session_id AND status = 'pending';

				INSERT INTO scheduled_session_reminders
					(id, session_id, workflow_id, organization_id, reminder_type, scheduled_for, status)
				SELECT
					gen_random_uuid(),
					s.id,
					w.id,
					w.organization_id,
					COALESCE(w.trigger_conditions->>'reminder_type', 'before_session'),
					((s.session_date || ' ' || s.session_time)::timestamp
						AT TIME ZONE COALESCE(os.timezone, 'UTC'))
						- MAKE_INTERVAL(
							days  => COALESCE((w.trigger_conditions->>'reminder_days')::int, 0),
							hours => COALESCE((w.trigger_conditions->>'reminder_hours')::int, 0)),
					'pending'
				FROM sessions s
				JOIN workflows w
					ON w.organization_id = s.organization_id
					AND w.trigger_type = 'session_reminder'
					AND w.is_active
				LEFT JOIN organization_settings os
					ON os.organization_id = s.organization_id
				WHERE s.id = p_session_id;
			END;
			$$ LANGUAGE plpgsql;
		`,
		5: `
			-- Galleries, their assets and the download job queue
			CREATE TABLE galleries (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				title VARCHAR(255) NOT NULL,
				type VARCHAR(20) NOT NULL,
				session_id UUID
			);

			CREATE TABLE gallery_assets (
				id UUID PRIMARY KEY,
				gallery_id UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
				storage_path_web TEXT,
				storage_path_original TEXT,
				original_name VARCHAR(512),
				status VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_gallery_assets_gallery ON gallery_assets(gallery_id) WHERE status = 'ready';

			CREATE TABLE gallery_access_grants (
				gallery_id UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
				viewer_id UUID NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (gallery_id, viewer_id)
			);

			CREATE TABLE gallery_download_jobs (
				id UUID PRIMARY KEY,
				gallery_id UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
				viewer_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				gallery_type VARCHAR(20) NOT NULL,
				asset_variant VARCHAR(20) NOT NULL,
				asset_count INT NOT NULL,
				assets_updated_at TIMESTAMP WITH TIME ZONE,
				storage_path TEXT,
				error_message TEXT,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				processing_started_at TIMESTAMP WITH TIME ZONE,
				ready_at TIMESTAMP WITH TIME ZONE,
				failed_at TIMESTAMP WITH TIME ZONE,
				expired_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_download_jobs_pending
				ON gallery_download_jobs(created_at) WHERE status = 'pending';
			CREATE INDEX idx_download_jobs_expiry ON gallery_download_jobs(expires_at);
			CREATE INDEX idx_download_jobs_reuse
				ON gallery_download_jobs(gallery_id, asset_variant, created_at);
		`,
	}
}
