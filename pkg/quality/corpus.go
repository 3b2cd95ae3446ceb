package quality

import (
	"github.com/wa-project/recorder/pkg/lexical"
	"github.com/wa-project/recorder/pkg/recorder"
)

// SyntheticCorpus returns a deterministic terminal-session corpus with
// stable event IDs, spanning multiple panes and mixed ingress/egress
// traffic including an error stanza, for use as the golden-query fixture.
// Event IDs are stable across calls so golden queries can reference them
// by name.
func SyntheticCorpus() []lexical.Document {
	docs := []lexical.Document{
		{
			EventID: "evt-0001", PaneID: 1, SessionID: "sess-alpha",
			EventType: string(recorder.StreamIngress), IngressKind: "keystroke",
			OccurredAtMs: 1000, Sequence: 1, LogOffset: 0,
			Text: "ls -la /var/log", TextSymbols: "ls -la /var/log",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0002", PaneID: 1, SessionID: "sess-alpha",
			EventType: string(recorder.StreamEgress), SegmentKind: "stdout",
			OccurredAtMs: 1010, Sequence: 2, LogOffset: 1,
			Text: "total 48\ndrwxr-xr-x  2 root root 4096 auth.log", TextSymbols: "total 48 drwxr-xr-x 2 root root 4096 auth.log",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0003", PaneID: 1, SessionID: "sess-alpha",
			EventType: string(recorder.StreamIngress), IngressKind: "keystroke",
			OccurredAtMs: 1020, Sequence: 3, LogOffset: 2,
			Text: "systemctl restart nginx", TextSymbols: "systemctl restart nginx",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0004", PaneID: 1, SessionID: "sess-alpha",
			EventType: string(recorder.StreamEgress), SegmentKind: "stderr",
			OccurredAtMs: 1030, Sequence: 4, LogOffset: 3,
			Text: "Job for nginx.service failed because the control process exited with error code.\nSee \"systemctl status nginx.service\" and \"journalctl -xe\" for details.",
			TextSymbols: "Job for nginx.service failed because the control process exited with error code. See systemctl status nginx.service and journalctl -xe for details.",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0005", PaneID: 1, SessionID: "sess-alpha",
			EventType: string(recorder.StreamEgress), SegmentKind: "stdout",
			OccurredAtMs: 1040, Sequence: 5, LogOffset: 4,
			Text: "nginx: [emerg] bind() to 0.0.0.0:443 failed (98: Address already in use)",
			TextSymbols: "nginx: [emerg] bind() to 0.0.0.0:443 failed (98: Address already in use)",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0006", PaneID: 2, SessionID: "sess-alpha",
			EventType: string(recorder.StreamIngress), IngressKind: "keystroke",
			OccurredAtMs: 1050, Sequence: 6, LogOffset: 5,
			Text: "kubectl get pods -n production", TextSymbols: "kubectl get pods -n production",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0007", PaneID: 2, SessionID: "sess-alpha",
			EventType: string(recorder.StreamEgress), SegmentKind: "stdout",
			OccurredAtMs: 1060, Sequence: 7, LogOffset: 6,
			Text: "NAME                     READY   STATUS             RESTARTS\napi-7d9f8c-abcde         0/1     CrashLoopBackOff   5",
			TextSymbols: "NAME READY STATUS RESTARTS api-7d9f8c-abcde 0/1 CrashLoopBackOff 5",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0008", PaneID: 2, SessionID: "sess-alpha",
			EventType: string(recorder.StreamControl), ControlMarkerType: "resize",
			OccurredAtMs: 1070, Sequence: 8, LogOffset: 7,
			Text: "", TextSymbols: "",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0009", PaneID: 2, SessionID: "sess-beta",
			EventType: string(recorder.StreamEgress), SegmentKind: "stderr",
			OccurredAtMs: 1080, Sequence: 9, LogOffset: 8,
			Text: "connection refused: dial tcp 10.0.0.5:5432: connect: connection refused",
			TextSymbols: "connection refused: dial tcp 10.0.0.5:5432: connect: connection refused",
			Source: recorder.SourceOperator,
		},
		{
			EventID: "evt-0010", PaneID: 3, SessionID: "sess-beta",
			EventType: string(recorder.StreamEgress), SegmentKind: "stdout",
			OccurredAtMs: 1090, Sequence: 10, LogOffset: 9,
			Text: "deployment rolled back successfully", TextSymbols: "deployment rolled back successfully",
			Source: recorder.SourceOperator,
		},
	}
	return docs
}

// IndexSyntheticCorpus builds a fresh lexical.Service populated with
// SyntheticCorpus.
func IndexSyntheticCorpus() *lexical.Service {
	svc := lexical.NewService()
	for _, d := range SyntheticCorpus() {
		svc.Index(d)
	}
	return svc
}
