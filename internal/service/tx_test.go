package service

import "context"

type testTxRepos struct {
	items  ItemRepositoryInterface
	assets ImageAssetRepositoryInterface
	jobs   CaptureJobRepositoryInterface
}

func (t *testTxRepos) Items() ItemRepositoryInterface {
	return t.items
}

func (t *testTxRepos) Assets() ImageAssetRepositoryInterface {
	return t.assets
}

func (t *testTxRepos) Jobs() CaptureJobRepositoryInterface {
	return t.jobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
