package starboard

import (
	"context"

	"github.com/Seklfreak/starboard/metrics"
	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// concurrent unlocked updates may land out of order, every update re-checks
// the count this many times before giving up
const maxUpdatePasses = 3

type MirrorVoteStore interface {
	storage.VoteStore
	storage.MirrorStore
}

// Reconciler turns vote events into the matching state of the mirror message
type Reconciler struct {
	store   MirrorVoteStore
	configs ConfigSource
	api     MessageAPI
	locker  Locker
	scope   LockScope
	log     *logrus.Entry
}

func NewReconciler(
	store MirrorVoteStore, configs ConfigSource, api MessageAPI, locker Locker, scope LockScope, log *logrus.Entry,
) *Reconciler {
	if scope == "" {
		scope = LockScopeMessage
	}
	return &Reconciler{
		store:   store,
		configs: configs,
		api:     api,
		locker:  locker,
		scope:   scope,
		log:     log,
	}
}

// Handle processes one event. Guard rejections return nil, storage and
// discord failures are returned and the event is dropped.
func (r *Reconciler) Handle(ctx context.Context, event VoteEvent) error {
	metrics.EventsHandled.Add(1)
	log := r.log.WithFields(event.fields())

	var err error
	switch event.Kind {
	case VoteAdded, VoteRemoved:
		err = r.handleVote(ctx, event, log)
	case AllVotesCleared, MessageDeleted:
		err = r.handleClear(ctx, event, log)
	default:
		err = errors.Errorf("unknown event kind %d", event.Kind)
	}
	if err != nil {
		metrics.ReconcileErrors.Add(1)
	}
	return err
}

func (r *Reconciler) reject(log *logrus.Entry, reason string) error {
	metrics.VotesRejected.Add(1)
	log.WithField("reason", reason).Debug("vote rejected")
	return nil
}

func (r *Reconciler) handleVote(ctx context.Context, event VoteEvent, log *logrus.Entry) error {
	config, err := r.configs.GetConfig(ctx, event.GuildID)
	if err != nil {
		return err
	}
	if !config.Usable() {
		return r.reject(log, "not configured")
	}
	if event.Emoji != config.VoteEmoji {
		return r.reject(log, "emoji mismatch")
	}
	if event.VoterIsBot {
		return r.reject(log, "bot voter")
	}
	if event.ChannelID == config.MirrorChannelID {
		return r.reject(log, "mirror channel")
	}

	if event.Kind == VoteRemoved {
		return r.removeVote(ctx, event, config, log)
	}

	var original *discordgo.Message
	if !config.SelfVoteAllowed {
		original, err = r.api.FetchMessage(ctx, event.ChannelID, event.MessageID)
		if err != nil {
			if IsNotFound(err) {
				return r.reject(log, "message gone")
			}
			return err
		}
		if original.Author != nil && original.Author.ID == event.VoterID {
			err = r.api.RetractVote(ctx, event.ChannelID, event.MessageID, event.Emoji, event.VoterID)
			if err != nil {
				log.WithError(err).Warn("retracting self vote failed")
			}
			return r.reject(log, "self vote")
		}
	}

	return r.addVote(ctx, event, config, original, log)
}

func (r *Reconciler) addVote(
	ctx context.Context, event VoteEvent, config *models.StarboardConfig, original *discordgo.Message, log *logrus.Entry,
) error {
	added, err := r.store.AddVote(ctx, event.MessageID, event.VoterID)
	if err != nil {
		return err
	}
	if added {
		metrics.VotesAdded.Add(1)
	}

	count, err := r.store.CountVotes(ctx, event.MessageID)
	if err != nil {
		return err
	}

	record, err := r.getMirror(ctx, event.MessageID)
	if err != nil {
		return err
	}
	if record != nil {
		stale, err := r.updateMirror(ctx, record, count, config.Threshold, log)
		if err != nil || !stale {
			return err
		}
	}

	if count < config.Threshold {
		return nil
	}
	return r.createMirror(ctx, event, config, original, log)
}

func (r *Reconciler) removeVote(ctx context.Context, event VoteEvent, config *models.StarboardConfig, log *logrus.Entry) error {
	removed, err := r.store.RemoveVote(ctx, event.MessageID, event.VoterID)
	if err != nil {
		return err
	}
	if removed {
		metrics.VotesRemoved.Add(1)
	}

	count, err := r.store.CountVotes(ctx, event.MessageID)
	if err != nil {
		return err
	}

	record, err := r.getMirror(ctx, event.MessageID)
	if err != nil || record == nil {
		return err
	}

	if count >= config.Threshold {
		_, err = r.updateMirror(ctx, record, count, config.Threshold, log)
		return err
	}
	return r.retractMirror(ctx, record, log)
}

func (r *Reconciler) handleClear(ctx context.Context, event VoteEvent, log *logrus.Entry) error {
	cleared, err := r.store.ClearVotes(ctx, event.MessageID)
	if err != nil {
		return err
	}
	if cleared > 0 {
		metrics.VotesRemoved.Add(int64(cleared))
	}

	record, err := r.getMirror(ctx, event.MessageID)
	if err != nil || record == nil {
		return err
	}
	return r.retractMirror(ctx, record, log)
}

// createMirror runs the threshold crossing under the reconciliation lock.
// Whoever finds a record after taking the lock lost the race and updates instead.
func (r *Reconciler) createMirror(
	ctx context.Context, event VoteEvent, config *models.StarboardConfig, original *discordgo.Message, log *logrus.Entry,
) error {
	if original == nil {
		var err error
		original, err = r.api.FetchMessage(ctx, event.ChannelID, event.MessageID)
		if err != nil {
			if IsNotFound(err) {
				log.Debug("original message is gone, not mirroring")
				return nil
			}
			return err
		}
	}

	unlock, err := r.locker.Lock(ctx, r.scope.Key(event.GuildID, event.MessageID))
	if err != nil {
		return errors.Wrap(err, "acquiring reconciliation lock")
	}
	locked := true
	release := func() {
		if locked {
			locked = false
			unlock()
		}
	}
	defer release()

	count, err := r.store.CountVotes(ctx, event.MessageID)
	if err != nil {
		return err
	}
	record, err := r.getMirror(ctx, event.MessageID)
	if err != nil {
		return err
	}
	if record != nil {
		release()
		return r.lostRace(ctx, record, count, config.Threshold, log)
	}
	if count < config.Threshold {
		return nil
	}

	card := Render(original, event.GuildID, count, config.VoteEmoji)
	mirrorMessageID, err := r.api.SendEmbed(ctx, config.MirrorChannelID, card.Embed())
	if err != nil {
		return err
	}

	record = &models.MirrorRecord{
		GuildID:           event.GuildID,
		OriginalMessageID: event.MessageID,
		OriginalChannelID: event.ChannelID,
		MirrorMessageID:   mirrorMessageID,
		MirrorChannelID:   config.MirrorChannelID,
		StarCount:         count,
	}
	err = r.store.CreateMirror(ctx, record)
	if err != nil {
		r.discard(ctx, config.MirrorChannelID, mirrorMessageID, log)
		if !storage.IsDuplicate(err) {
			return err
		}

		// another process created it between our recount and insert
		release()
		existing, err := r.getMirror(ctx, event.MessageID)
		if err != nil || existing == nil {
			return err
		}
		return r.lostRace(ctx, existing, count, config.Threshold, log)
	}

	metrics.MirrorsCreated.Add(1)
	log.WithFields(logrus.Fields{
		"mirror_id":         record.ID,
		"mirror_message_id": mirrorMessageID,
		"count":             count,
	}).Info("mirrored message")
	release()

	// removals that ran while the mirror was sent found no record to act on
	count, err = r.store.CountVotes(ctx, event.MessageID)
	if err != nil {
		return err
	}
	if count < config.Threshold {
		return r.retractMirror(ctx, record, log)
	}
	_, err = r.updateMirror(ctx, record, count, config.Threshold, log)
	return err
}

func (r *Reconciler) lostRace(ctx context.Context, record *models.MirrorRecord, count, threshold int, log *logrus.Entry) error {
	metrics.RaceLosses.Add(1)
	log.Debug("mirror already exists, updating instead")
	_, err := r.updateMirror(ctx, record, count, threshold, log)
	return err
}

// updateMirror edits the footer of an existing mirror. It reports stale when
// the mirror message vanished and its record was dropped.
func (r *Reconciler) updateMirror(
	ctx context.Context, record *models.MirrorRecord, count, threshold int, log *logrus.Entry,
) (stale bool, err error) {
	for pass := 0; pass < maxUpdatePasses; pass++ {
		if record.StarCount == count || count < threshold {
			return false, nil
		}

		message, err := r.api.FetchMessage(ctx, record.MirrorChannelID, record.MirrorMessageID)
		if err != nil && !IsNotFound(err) {
			return false, err
		}
		if err != nil || len(message.Embeds) == 0 || message.Embeds[0] == nil {
			return true, r.dropStale(ctx, record, log)
		}

		card := CardFromEmbed(message.Embeds[0]).WithCount(count)
		err = r.api.EditEmbed(ctx, record.MirrorChannelID, record.MirrorMessageID, card.Embed())
		if err != nil {
			if IsNotFound(err) {
				return true, r.dropStale(ctx, record, log)
			}
			return false, err
		}

		err = r.store.UpdateMirrorCount(ctx, record.OriginalMessageID, count)
		if storage.IsNotFound(err) {
			// retracted meanwhile
			return false, nil
		}
		if err != nil {
			return false, err
		}
		metrics.MirrorsUpdated.Add(1)
		log.WithField("count", count).Debug("updated mirror")

		record.StarCount = count
		count, err = r.store.CountVotes(ctx, record.OriginalMessageID)
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func (r *Reconciler) retractMirror(ctx context.Context, record *models.MirrorRecord, log *logrus.Entry) error {
	err := r.api.DeleteMessage(ctx, record.MirrorChannelID, record.MirrorMessageID)
	if err != nil {
		return err
	}

	deleted, err := r.store.DeleteMirror(ctx, record.OriginalMessageID)
	if err != nil {
		return err
	}
	if deleted {
		metrics.MirrorsRetracted.Add(1)
		log.WithField("mirror_id", record.ID).Info("retracted mirror")
	}
	return nil
}

func (r *Reconciler) dropStale(ctx context.Context, record *models.MirrorRecord, log *logrus.Entry) error {
	log.WithField("mirror_message_id", record.MirrorMessageID).Warn("mirror message vanished, dropping record")
	_, err := r.store.DeleteMirror(ctx, record.OriginalMessageID)
	return err
}

// discard removes a mirror message that could not be persisted
func (r *Reconciler) discard(ctx context.Context, channelID, messageID string, log *logrus.Entry) {
	err := r.api.DeleteMessage(ctx, channelID, messageID)
	if err != nil {
		log.WithError(err).Warn("deleting unpersisted mirror message failed")
	}
}

func (r *Reconciler) getMirror(ctx context.Context, messageID string) (*models.MirrorRecord, error) {
	record, err := r.store.GetMirror(ctx, messageID)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
