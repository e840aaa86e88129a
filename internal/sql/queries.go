package sql

import "embed"

// Migrations holds the idempotent DDL for the local warehouse mirror.
//
//go:embed migrations
var Migrations embed.FS

//go:embed queries/select_study_rows.sql
var SelectStudyRows string

//go:embed queries/delete_load_batch.sql
var DeleteLoadBatch string

//go:embed queries/count_study_rows.sql
var CountStudyRows string
