package usecase

import (
	"path/filepath"

	"github.com/semmidev/mysqlbackup/internal/domain"
)

type DumpOptions struct {
	Program   string
	User      string
	Password  string
	ExtraArgs []string
}

// BuildDumpCommands returns one command per table in schema order. Each is
// the argv equivalent of
//
//	mysqldump -u<user> -p<password> -q --skip-opt -R <db> <table> > <run>/<db>/<YYYYMMDD>_<table>.sql
//
// with ExtraArgs placed before the database name. -p is omitted when there is
// no password so the tool never stops to prompt for one.
func BuildDumpCommands(run domain.Run, schema domain.Schema, opts DumpOptions) []domain.DumpCommand {
	cmds := make([]domain.DumpCommand, 0, schema.TableCount())

	for _, db := range schema {
		for _, table := range db.Tables {
			args := []string{"-u" + opts.User}
			if opts.Password != "" {
				args = append(args, "-p"+opts.Password)
			}
			args = append(args, "-q", "--skip-opt", "-R")
			args = append(args, opts.ExtraArgs...)
			args = append(args, db.Name, table)

			cmds = append(cmds, domain.DumpCommand{
				Database:   db.Name,
				Table:      table,
				OutputPath: filepath.Join(run.DatabaseDir(db.Name), run.DateStamp()+"_"+table+".sql"),
				Program:    opts.Program,
				Args:       args,
			})
		}
	}

	return cmds
}
