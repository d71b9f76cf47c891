package cli

var RunDiffstatForTest = runDiffstat
