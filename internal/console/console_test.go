package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithOutput(&buf)

	c.Successf("collected %d records", 42)
	c.Errorf("collection failed")
	c.Warnf("capacities degraded")
	c.Infof("starting run")
	c.Printf("plain %s", "line")

	out := buf.String()
	assert.Contains(t, out, "collected 42 records")
	assert.Contains(t, out, "collection failed")
	assert.Contains(t, out, "capacities degraded")
	assert.Contains(t, out, "starting run")
	assert.Contains(t, out, "plain line")
}

func TestCheck(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithOutput(&buf)

	c.Check("ARM credential", true, "")
	c.Check("Power BI token", false, "device code flow refused")

	out := buf.String()
	assert.Contains(t, out, "✓ ARM credential")
	assert.Contains(t, out, "✗ Power BI token: device code flow refused")
}

func TestSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithOutput(&buf)

	c.SummaryTable(map[string]int{
		"subscriptions": 2,
		"resources":     6,
	})

	out := buf.String()
	assert.Contains(t, out, "DATASET")
	assert.Contains(t, out, "subscriptions")
	assert.Contains(t, out, "resources")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "8")
}

func TestProgressBarLifecycle(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithOutput(&buf).Progress()

	p.Start(3, "Collecting subscription scopes")
	p.Step("sub-1")
	p.Step("sub-2")
	p.Step("sub-3")
	p.Finish()

	assert.NotEmpty(t, buf.String())
	assert.Nil(t, p.bar)
}

func TestProgressBarZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithOutput(&buf).Progress()

	p.Start(0, "nothing to do")
	p.Step("ignored")
	p.Finish()

	assert.Nil(t, p.bar)
}
