// Package gitsync commits the snapshot tree and pushes it to a remote.
//
// A cycle ends with three git invocations run in the configured repository:
//
//	git add -- ':(glob)<dir>/**/*.yml' ...
//	git -c user.name=<name> -c user.email=<email> commit -m "sync: DD-MM-YYYY HH:MM:SS"
//	git push -q <remote> HEAD:<branch>
//
// A commit that exits with status 1 means there was nothing to commit; the
// push is skipped and the sync counts as a success.
//
// When a token is configured and the remote resolves to an https URL, the
// token is placed in the URL's user info for the push only. The token never
// appears in logs or returned errors.
package gitsync
