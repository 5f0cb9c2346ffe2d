package carepaths

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
	"github.com/louisbranch/carepaths/internal/platform/id"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/script"
)

// errRejected stops apply when --stop-on-reject is set.
var errRejected = errors.New("command rejected")

func (c *cli) applyCommand() *cobra.Command {
	var stopOnReject bool
	cmd := &cobra.Command{
		Use:   "apply <patient-id> <script.yaml>",
		Short: "Run the commands of a script against a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := script.ParseFile(args[1])
			if err != nil {
				return err
			}
			envelopes, err := parsed.Envelopes(args[0])
			if err != nil {
				return err
			}
			correlationID, err := id.NewID()
			if err != nil {
				return fmt.Errorf("generate correlation id: %w", err)
			}
			return c.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
				defer w.Flush()
				accepted, rejected := 0, 0
				for i, envelope := range envelopes {
					requestID, err := id.NewID()
					if err != nil {
						return fmt.Errorf("generate request id: %w", err)
					}
					envelope.RequestID = requestID
					envelope.CorrelationID = correlationID

					result, err := rt.handler.Execute(ctx, envelope)
					if err != nil {
						return fmt.Errorf("command %d (%s): %w", i+1, envelope.Type, err)
					}
					if !result.Decision.Accepted() {
						rejected++
						rejection := result.Decision.Rejections[0]
						code := apperrors.Code(rejection.Code)
						fmt.Fprintf(w, "%d\t%s\trejected\t%s\t%s\t%s\n", i+1, envelope.Type, code.GRPCCode(), code, rejection.Message)
						if stopOnReject {
							return apperrors.WithMetadata(code, fmt.Sprintf("command %d: %s", i+1, rejection.Message), map[string]string{
								"patient_id":    envelope.PatientID,
								"command_type":  string(envelope.Type),
								"command_index": strconv.Itoa(i + 1),
							}, errRejected)
						}
						continue
					}
					accepted++
					fmt.Fprintf(w, "%d\t%s\taccepted\tOK\t%d events\tseq %d\n", i+1, envelope.Type, len(result.Decision.Events), result.LastSeq)
				}
				fmt.Fprintf(w, "\n%d accepted, %d rejected\n", accepted, rejected)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&stopOnReject, "stop-on-reject", false, "fail on the first rejected command")
	return cmd
}

type patientView struct {
	PatientID string        `json:"patient_id"`
	LastSeq   uint64        `json:"last_seq"`
	State     patient.State `json:"state"`
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Print the current state of a patient as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				state, lastSeq, err := rt.handler.Load(ctx, args[0])
				if err != nil {
					return err
				}
				encoder := json.NewEncoder(c.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(patientView{PatientID: state.ID, LastSeq: lastSeq, State: state})
			})
		},
	}
}

func (c *cli) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <patient-id>",
		Short: "List the recorded events of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				events, err := rt.handler.History(ctx, args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SEQ\tTIME\tTYPE\tENTITY\tPAYLOAD")
				for _, evt := range events {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s/%s\t%s\n",
						evt.Seq, evt.Timestamp.UTC().Format(time.RFC3339), evt.Type, evt.EntityType, evt.EntityID, evt.PayloadJSON)
				}
				return w.Flush()
			})
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the patients held by the configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				ids, err := rt.handler.Patients(ctx)
				if err != nil {
					return err
				}
				for _, patientID := range ids {
					fmt.Fprintln(c.stdout, patientID)
				}
				return nil
			})
		},
	}
}

func (c *cli) purgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <patient-id>",
		Short: "Delete every record of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				if err := rt.handler.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "purged %s\n", args[0])
				return nil
			})
		},
	}
}
